package models

import "time"

// RefreshToken is a registry record for one opaque refresh credential.
// The Token value itself is the secret; it is not separately signed.
// Scopes are the scopes granted at login, carried forward on refresh.
type RefreshToken struct {
	Token     string
	UserID    string
	Scopes    []string
	ExpiresAt time.Time
	Active    bool
	CreatedAt time.Time
}
