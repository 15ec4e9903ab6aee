package models

// Identity is the verified caller extracted from a bearer ID token, plus the
// request metadata recorded alongside the caller's mutations.
type Identity struct {
	Email     string
	UID       string
	Picture   string
	IP        string
	UserAgent string
}
