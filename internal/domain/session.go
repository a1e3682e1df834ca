package domain

const userRootPrefix = "User-"

// Session identifies the signed-in user on whose behalf catalog operations
// run. Sign-in itself belongs to the external identity provider; callers
// construct a Session from a verified token and pass it explicitly.
type Session struct {
	UserID string
	Email  string
}

// SignedIn reports whether the session carries a user.
func (s Session) SignedIn() bool {
	return s.UserID != ""
}

// UserRoot returns the per-user namespace every folder and photo path lives
// under. The prefix+id concatenation must stay stable: existing documents
// are addressed by it.
func (s Session) UserRoot() string {
	return userRootPrefix + s.UserID
}
