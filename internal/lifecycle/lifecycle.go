// Package lifecycle enforces the legal status transitions for ride requests
// and rides. Each transition is checked against the record's current stored
// status; an illegal transition is a caller error and surfaces as
// ErrInvalidTransition.
package lifecycle

import (
	"fmt"

	"github.com/quickride/quickride-backend/internal/models"
)

// InvalidTransitionError reports a transition attempted from a state that
// does not allow it.
type InvalidTransitionError struct {
	Entity     string // "ride_request" or "ride"
	Transition string
	From       string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %q from status %q", e.Entity, e.Transition, e.From)
}

// Request transitions
const (
	RequestAccept   = "accept"
	RequestStart    = "start"
	RequestComplete = "complete"
	RequestCancel   = "cancel"
)

// Ride transitions
const (
	RidePickup   = "pickup"
	RideStart    = "start"
	RideComplete = "complete"
	RideCancel   = "cancel"
)

// requestTransitions maps a transition to the statuses it may be applied from
// and the status it produces.
var requestTransitions = map[string]struct {
	from []string
	to   string
}{
	RequestAccept:   {[]string{models.RequestStatusPending}, models.RequestStatusAccepted},
	RequestStart:    {[]string{models.RequestStatusAccepted}, models.RequestStatusInProgress},
	RequestComplete: {[]string{models.RequestStatusInProgress}, models.RequestStatusCompleted},
	RequestCancel:   {[]string{models.RequestStatusPending, models.RequestStatusAccepted}, models.RequestStatusCancelled},
}

var rideTransitions = map[string]struct {
	from []string
	to   string
}{
	RidePickup:   {[]string{models.RideStatusWaiting}, models.RideStatusPickedUp},
	RideStart:    {[]string{models.RideStatusPickedUp}, models.RideStatusInProgress},
	RideComplete: {[]string{models.RideStatusInProgress}, models.RideStatusCompleted},
	RideCancel:   {[]string{models.RideStatusWaiting, models.RideStatusPickedUp, models.RideStatusInProgress}, models.RideStatusCancelled},
}

// NextRequestStatus validates a ride request transition against the current
// status and returns the resulting status.
func NextRequestStatus(current, transition string) (string, error) {
	rule, ok := requestTransitions[transition]
	if !ok {
		return "", &InvalidTransitionError{Entity: "ride_request", Transition: transition, From: current}
	}
	for _, s := range rule.from {
		if s == current {
			return rule.to, nil
		}
	}
	return "", &InvalidTransitionError{Entity: "ride_request", Transition: transition, From: current}
}

// NextRideStatus validates a ride transition against the current status and
// returns the resulting status.
func NextRideStatus(current, transition string) (string, error) {
	rule, ok := rideTransitions[transition]
	if !ok {
		return "", &InvalidTransitionError{Entity: "ride", Transition: transition, From: current}
	}
	for _, s := range rule.from {
		if s == current {
			return rule.to, nil
		}
	}
	return "", &InvalidTransitionError{Entity: "ride", Transition: transition, From: current}
}
