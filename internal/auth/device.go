package auth

import "time"

// DeviceID is the stable per-install identifier sent to Plex as X-Plex-Client-Identifier.
type DeviceID string

// AuthPin is a short-lived PIN issued by plex.tv for one login attempt.
// The user approves Code in a browser while the client polls ID.
type AuthPin struct {
	ID        int64
	Code      string
	ExpiresIn time.Duration // zero when plex.tv did not say
}

// Valid reports whether the pin can anchor a poll.
func (p AuthPin) Valid() bool {
	return p.ID > 0 && p.Code != ""
}

// AuthToken is the Plex bearer credential issued once the user approves a PIN.
type AuthToken string

// ProductInfo is the static product metadata sent with every identity request.
type ProductInfo struct {
	// Name is sent as X-Plex-Product and appended to the device name.
	Name string
}
