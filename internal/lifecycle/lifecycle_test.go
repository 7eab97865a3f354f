package lifecycle

import (
	"errors"
	"testing"

	"github.com/quickride/quickride-backend/internal/models"
)

func TestNextRequestStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		transition string
		want       string
		wantErr    bool
	}{
		{"accept pending", models.RequestStatusPending, RequestAccept, models.RequestStatusAccepted, false},
		{"start accepted", models.RequestStatusAccepted, RequestStart, models.RequestStatusInProgress, false},
		{"complete in progress", models.RequestStatusInProgress, RequestComplete, models.RequestStatusCompleted, false},
		{"cancel pending", models.RequestStatusPending, RequestCancel, models.RequestStatusCancelled, false},
		{"cancel accepted", models.RequestStatusAccepted, RequestCancel, models.RequestStatusCancelled, false},

		{"accept accepted", models.RequestStatusAccepted, RequestAccept, "", true},
		{"accept completed", models.RequestStatusCompleted, RequestAccept, "", true},
		{"accept cancelled", models.RequestStatusCancelled, RequestAccept, "", true},
		{"start pending", models.RequestStatusPending, RequestStart, "", true},
		{"complete pending", models.RequestStatusPending, RequestComplete, "", true},
		{"complete accepted", models.RequestStatusAccepted, RequestComplete, "", true},
		{"cancel in progress", models.RequestStatusInProgress, RequestCancel, "", true},
		{"cancel completed", models.RequestStatusCompleted, RequestCancel, "", true},
		{"cancel cancelled", models.RequestStatusCancelled, RequestCancel, "", true},
		{"unknown transition", models.RequestStatusPending, "teleport", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRequestStatus(tt.current, tt.transition)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NextRequestStatus(%q, %q) expected error, got %q", tt.current, tt.transition, got)
				}
				var invalid *InvalidTransitionError
				if !errors.As(err, &invalid) {
					t.Fatalf("error is %T, want *InvalidTransitionError", err)
				}
				if invalid.Entity != "ride_request" || invalid.From != tt.current {
					t.Errorf("error = %v, want entity ride_request from %q", invalid, tt.current)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextRequestStatus(%q, %q) unexpected error: %v", tt.current, tt.transition, err)
			}
			if got != tt.want {
				t.Errorf("NextRequestStatus(%q, %q) = %q, want %q", tt.current, tt.transition, got, tt.want)
			}
		})
	}
}

func TestNextRideStatus(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		transition string
		want       string
		wantErr    bool
	}{
		{"pickup waiting", models.RideStatusWaiting, RidePickup, models.RideStatusPickedUp, false},
		{"start picked up", models.RideStatusPickedUp, RideStart, models.RideStatusInProgress, false},
		{"complete in progress", models.RideStatusInProgress, RideComplete, models.RideStatusCompleted, false},
		{"cancel waiting", models.RideStatusWaiting, RideCancel, models.RideStatusCancelled, false},
		{"cancel picked up", models.RideStatusPickedUp, RideCancel, models.RideStatusCancelled, false},
		{"cancel in progress", models.RideStatusInProgress, RideCancel, models.RideStatusCancelled, false},

		{"pickup picked up", models.RideStatusPickedUp, RidePickup, "", true},
		{"start waiting", models.RideStatusWaiting, RideStart, "", true},
		{"complete waiting", models.RideStatusWaiting, RideComplete, "", true},
		{"complete picked up", models.RideStatusPickedUp, RideComplete, "", true},
		{"cancel completed", models.RideStatusCompleted, RideCancel, "", true},
		{"cancel cancelled", models.RideStatusCancelled, RideCancel, "", true},
		{"pickup completed", models.RideStatusCompleted, RidePickup, "", true},
		{"unknown transition", models.RideStatusWaiting, "abandon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRideStatus(tt.current, tt.transition)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NextRideStatus(%q, %q) expected error, got %q", tt.current, tt.transition, got)
				}
				var invalid *InvalidTransitionError
				if !errors.As(err, &invalid) {
					t.Fatalf("error is %T, want *InvalidTransitionError", err)
				}
				if invalid.Entity != "ride" || invalid.From != tt.current {
					t.Errorf("error = %v, want entity ride from %q", invalid, tt.current)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextRideStatus(%q, %q) unexpected error: %v", tt.current, tt.transition, err)
			}
			if got != tt.want {
				t.Errorf("NextRideStatus(%q, %q) = %q, want %q", tt.current, tt.transition, got, tt.want)
			}
		})
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{Entity: "ride", Transition: "complete", From: "waiting"}
	want := `invalid ride transition "complete" from status "waiting"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
