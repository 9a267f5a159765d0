package domain

import "time"

// Identity is a principal issued by the external identity platform.
type Identity struct {
	ID             string
	Email          string
	EmailConfirmed bool
}

// Session is a live login issued by the identity platform.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     Identity
}
