package tabledoc

// AuthEvent tags a session transition delivered to session subscribers.
type AuthEvent string

const (
	// EventSignedIn is delivered when a non-nil session is stored.
	EventSignedIn AuthEvent = "SIGNED_IN"
	// EventSignedOut is delivered when the session is cleared.
	EventSignedOut AuthEvent = "SIGNED_OUT"
)

// SessionUser is the user snapshot embedded in a session.
type SessionUser struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the persisted session document: an access token plus the
// snapshot of the user it was issued for. At most one session exists at
// a time; it is replaced by re-sign-in and destroyed by sign-out.
type Session struct {
	AccessToken string      `json:"access_token"`
	User        SessionUser `json:"user"`
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User.Metadata != nil {
		c.User.Metadata = make(map[string]any, len(s.User.Metadata))
		for k, v := range s.User.Metadata {
			c.User.Metadata[k] = v
		}
	}
	return &c
}
