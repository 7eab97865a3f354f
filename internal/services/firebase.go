package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	// FirebaseApp is the Firebase app instance
	FirebaseApp *firebase.App
	// MessagingClient is the Firebase Cloud Messaging client
	MessagingClient *messaging.Client
)

// InitFirebase initializes Firebase Admin SDK. Push delivery is optional:
// when the service account is not configured the app runs without it.
func InitFirebase() error {
	ctx := context.Background()

	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil
	}

	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FirebaseApp = app
	MessagingClient = client

	log.Println("Firebase Cloud Messaging initialized successfully")
	return nil
}

// PushPayload represents the push notification content
type PushPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// SendPushToToken sends a push notification to a specific FCM token
func SendPushToToken(ctx context.Context, token string, payload PushPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notification.")
		return nil
	}

	// FCM requires string values in the data map
	dataStrings := make(map[string]string)
	for key, value := range payload.Data {
		switch v := value.(type) {
		case string:
			dataStrings[key] = v
		case int, int64, uint, float64, bool:
			dataStrings[key] = fmt.Sprintf("%v", v)
		default:
			jsonData, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling data for key %s: %v", key, err)
				continue
			}
			dataStrings[key] = string(jsonData)
		}
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  dataStrings,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:                 "default",
				ChannelID:             "quickride_default",
				Priority:              messaging.PriorityHigh,
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:            "default",
					MutableContent:   true,
					ContentAvailable: true,
				},
			},
		},
	}

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %v", err)
	}

	log.Printf("Successfully sent push notification, response: %s", response)
	return nil
}

// SendPushToMultipleTokens sends a push notification to multiple FCM tokens
func SendPushToMultipleTokens(ctx context.Context, tokens []string, payload PushPayload) (*messaging.BatchResponse, error) {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notifications.")
		return nil, nil
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens provided")
	}

	messages := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, &messaging.Message{
			Notification: &messaging.Notification{
				Title: payload.Title,
				Body:  payload.Body,
			},
			Token: token,
		})
	}

	return MessagingClient.SendEach(ctx, messages)
}
