package models

import (
	"github.com/google/uuid"
	"github.com/tashanwin/gamesvc/internal/money"
)

// User is a platform account. Balance is the authoritative wallet value in
// paise; every stake debit and payout credit adjusts it atomically in the
// wallet store.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	// Ephemeral users are created for unauthenticated viewers; they can
	// watch rounds but hold a zero balance until claimed.
	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	Balance money.Amount `json:"balance"`
}
