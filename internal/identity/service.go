// Package identity provides the authentication service for the portal:
// sign-up with automatic profile provisioning, password sign-in, session
// persistence and auth state change subscriptions.
//
// The service owns no storage of its own. Users and profiles live behind
// the injected query executor, so they end up wherever data operations
// run, locally or on a delegated backend. The active session is the
// local store's session document either way, so sessions survive
// restarts the same way table rows do.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chuna-hq/chuna/internal/tabledoc"
)

const (
	// TableUsers holds credential rows.
	TableUsers = "users"
	// TableProfiles holds the per-user portal profile.
	TableProfiles = "profiles"

	// RoleAdmin marks the agency operator profile.
	RoleAdmin = "admin"
	// RoleClient marks a regular customer profile.
	RoleClient = "client"

	resetDelay = 300 * time.Millisecond
)

// Service handles account lifecycle and session state.
type Service struct {
	exec        tabledoc.Executor
	sessions    *tabledoc.Store
	masterEmail string
	jwtSecret   []byte
	tokenTTL    time.Duration
}

// NewService creates the auth service. exec runs the user and profile
// table operations and must be the same executor the rest of the
// application queries through, so accounts land where everything else
// reads them. sessions holds the session document, which always stays
// local. masterEmail is the address whose profile is provisioned (and
// kept) as admin; everyone else is a client.
func NewService(exec tabledoc.Executor, sessions *tabledoc.Store, masterEmail string, jwtSecret []byte) *Service {
	return &Service{
		exec:        exec,
		sessions:    sessions,
		masterEmail: masterEmail,
		jwtSecret:   jwtSecret,
		tokenTTL:    24 * time.Hour,
	}
}

func (s *Service) from(table string) tabledoc.Query {
	return tabledoc.NewQuery(s.exec, table)
}

// SignUp registers a new account, provisions its profile and signs the
// new user in. The email conflict check is case-insensitive. On conflict
// no row is written and ErrUserExists is returned.
func (s *Service) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*tabledoc.Session, error) {
	if email == "" || password == "" {
		return nil, errEmailPwdRequired
	}

	if _, err := s.findUser(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.from(TableUsers).Insert(tabledoc.Row{
		"email":         email,
		"password_hash": string(hash),
		"user_metadata": metadata,
	}).RunSingle(ctx)
	if err != nil {
		return nil, err
	}

	role := RoleClient
	if s.isMaster(email) {
		role = RoleAdmin
	}
	// The profile shares the user's id so either can be looked up from
	// the other without a join.
	profile := tabledoc.Row{
		tabledoc.AttrID: user.ID(),
		"email":         email,
		"role":          role,
	}
	if name, ok := metadata["full_name"].(string); ok && name != "" {
		profile["full_name"] = name
	}
	if _, err := s.from(TableProfiles).Insert(profile).Run(ctx); err != nil {
		return nil, err
	}

	return s.openSession(user)
}

// SignInWithPassword authenticates by email and password and stores the
// resulting session. The lookup is case-insensitive. A miss and a hash
// mismatch both return ErrInvalidCredentials so callers cannot probe for
// registered addresses.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*tabledoc.Session, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hash := user.String("password_hash")
	if hash == "" {
		// Accounts imported from the legacy site have no stored hash and
		// accept any password until the user resets it.
		slog.Warn("Sign-in allowed for account without password hash", "email", user.String("email"))
	} else if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if s.isMaster(user.String("email")) {
		if err := s.promoteMaster(ctx, user.ID()); err != nil {
			return nil, err
		}
	}

	return s.openSession(user)
}

// ResetPasswordForEmail pretends to send a reset email. No mail is ever
// delivered; the call just takes about as long as a real one would.
func (s *Service) ResetPasswordForEmail(ctx context.Context, email string) error {
	select {
	case <-time.After(resetDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignOut clears the stored session and notifies subscribers. Signing
// out while signed out is not an error.
func (s *Service) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sessions.SaveSession(nil)
}

// GetSession returns the current session, or nil when signed out.
func (s *Service) GetSession() *tabledoc.Session {
	return s.sessions.LoadSession()
}

// OnAuthStateChange registers fn for auth state transitions. The current
// state is replayed to fn immediately, then fn receives every future
// transition until the subscription is unsubscribed.
func (s *Service) OnAuthStateChange(fn tabledoc.SessionFunc) *Subscription {
	session := s.sessions.LoadSession()
	event := tabledoc.EventSignedOut
	if session != nil {
		event = tabledoc.EventSignedIn
	}
	fn(event, session)
	return &Subscription{cancel: s.sessions.SubscribeSession(fn)}
}

// Subscription is a removable auth state change registration.
type Subscription struct {
	cancel func()
}

// Unsubscribe stops delivery to the callback.
func (s *Subscription) Unsubscribe() {
	s.cancel()
}

func (s *Service) isMaster(email string) bool {
	return s.masterEmail != "" && strings.EqualFold(email, s.masterEmail)
}

// findUser looks a user up by email, case-insensitively. Row attribute
// filters are exact so the scan happens here instead.
func (s *Service) findUser(ctx context.Context, email string) (tabledoc.Row, error) {
	rows, err := s.from(TableUsers).Select().Run(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if strings.EqualFold(row.String("email"), email) {
			return row, nil
		}
	}
	return nil, tabledoc.ErrRowNotFound
}

// promoteMaster forces the master account's profile role to admin. The
// master email is configuration, so an account that signed up before the
// configuration changed may still carry a client profile.
func (s *Service) promoteMaster(ctx context.Context, userID string) error {
	profile, err := s.from(TableProfiles).Select().Eq(tabledoc.AttrID, userID).RunSingle(ctx)
	if err != nil {
		if isNotFound(err) {
			_, err = s.from(TableProfiles).Insert(tabledoc.Row{
				tabledoc.AttrID: userID,
				"email":         s.masterEmail,
				"role":          RoleAdmin,
			}).Run(ctx)
		}
		return err
	}
	if profile.String("role") == RoleAdmin {
		return nil
	}
	slog.Info("Promoting master account profile to admin", "user_id", userID)
	_, err = s.from(TableProfiles).Update(tabledoc.Row{"role": RoleAdmin}).Eq(tabledoc.AttrID, userID).Run(ctx)
	return err
}

// openSession issues a token for the user, persists the session and lets
// the store fan out the SIGNED_IN notification.
func (s *Service) openSession(user tabledoc.Row) (*tabledoc.Session, error) {
	token, err := IssueToken(s.jwtSecret, user.ID(), user.String("email"), s.tokenTTL)
	if err != nil {
		return nil, err
	}
	session := &tabledoc.Session{
		AccessToken: token,
		User: tabledoc.SessionUser{
			ID:       user.ID(),
			Email:    user.String("email"),
			Metadata: user.Map("user_metadata"),
		},
	}
	if err := s.sessions.SaveSession(session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}
