package domain

// User is the media server account a Plex token signs in to.
type User struct {
	ID           int
	Email        string
	Username     string
	PlexUsername string
	DisplayName  string
	Permissions  int
	Avatar       string
	RequestCount int
}

// Name returns the best available display name for the user.
func (u User) Name() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Username != "":
		return u.Username
	case u.PlexUsername != "":
		return u.PlexUsername
	default:
		return u.Email
	}
}

// ServerStatus describes a reachable media request server.
type ServerStatus struct {
	Version         string
	CommitTag       string
	UpdateAvailable bool
}
