package models

import "time"

// Teacher is a row in the PostgreSQL teachers table. ID is the identity
// provider's stable user id.
type Teacher struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	FirstSeen   time.Time `json:"first_seen"`
	LastLogin   time.Time `json:"last_login"`
}

// SessionRequest is the JSON body for POST /api/session.
type SessionRequest struct {
	IDToken string `json:"id_token"`
}
