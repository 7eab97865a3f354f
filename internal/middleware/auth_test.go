package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(200, gin.H{
			"userId":   c.GetUint("userId"),
			"userType": c.GetString("userType"),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter()

	exp := time.Now().Add(time.Hour).Unix()
	valid := signToken(t, jwt.MapClaims{"id": 7, "userType": "rider", "exp": exp})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"missing token", "", "", 401},
		{"garbage token", "Bearer not.a.token", "", 401},
		{"valid header token", "Bearer " + valid, "", 200},
		{"valid query token", "", valid, 200},
		{
			"missing id claim",
			"Bearer " + signToken(t, jwt.MapClaims{"userType": "rider", "exp": exp}),
			"", 401,
		},
		{
			"missing userType claim",
			"Bearer " + signToken(t, jwt.MapClaims{"id": 7, "exp": exp}),
			"", 401,
		},
		{
			"wrongly typed claims",
			"Bearer " + signToken(t, jwt.MapClaims{"id": "seven", "userType": 3, "exp": exp}),
			"", 401,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/protected"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRequireUserType(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/driver-only", AuthMiddleware(), RequireUserType("driver"), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	exp := time.Now().Add(time.Hour).Unix()
	riderToken := signToken(t, jwt.MapClaims{"id": 1, "userType": "rider", "exp": exp})
	driverToken := signToken(t, jwt.MapClaims{"id": 2, "userType": "driver", "exp": exp})

	req := httptest.NewRequest(http.MethodGet, "/driver-only", nil)
	req.Header.Set("Authorization", "Bearer "+riderToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Errorf("rider on driver route: status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/driver-only", nil)
	req.Header.Set("Authorization", "Bearer "+driverToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("driver on driver route: status = %d, want 200", w.Code)
	}
}
