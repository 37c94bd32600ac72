package types

import "time"

// User is a tracked person in the collection.
// Points are derived from LastReset and are never stored.
type User struct {
	// Name is the display name chosen by the administrator. It is not unique.
	Name string `json:"name"`

	// Token is the server-generated secret that identifies the user.
	// It is both the lookup key and the credential for self reset.
	Token string `json:"token"`

	// Points is the number of whole weeks since LastReset, filled in when
	// the user is returned to a caller.
	Points int `json:"pandapunten"`

	// LastReset is the anchor from which points are counted.
	LastReset time.Time `json:"last_reset"`
}

// UserEvent describes a persisted change to the collection.
// The user's token is deliberately absent.
type UserEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	LastReset  time.Time `json:"last_reset"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventUserCreated           = "user.created"
	EventUserDeleted           = "user.deleted"
	EventUserResetDateAdjusted = "user.reset_date_adjusted"
	EventUserReset             = "user.reset"
)
