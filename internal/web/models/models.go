// Package models holds the JSON request and response shapes of the local web
// shell.
package models

import "time"

// Health is the liveness response of the web shell itself.
type Health struct {
	Status  string         `json:"status"`
	Time    time.Time      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the signed-in state.
type Session struct {
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Prefs are the user preferences exposed to the shell.
type Prefs struct {
	Author string `json:"author"`
	Theme  string `json:"theme"`
}

// PrefsUpdate changes only the fields that are set.
type PrefsUpdate struct {
	Author *string `json:"author,omitempty"`
	Theme  *string `json:"theme,omitempty"`
}
