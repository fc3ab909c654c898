package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chuna-hq/chuna/internal/tabledoc"
)

const masterEmail = "owner@example.com"

func newTestService(t *testing.T) (*Service, *tabledoc.Store) {
	t.Helper()
	store, err := tabledoc.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, store, masterEmail, []byte("test-secret")), store
}

func TestServiceTableOpsFollowExecutor(t *testing.T) {
	ctx := context.Background()
	backendStore, err := tabledoc.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sessionStore, err := tabledoc.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// Table operations run on one executor while the session document
	// lives in another store, as on an instance delegating its data.
	svc := NewService(backendStore, sessionStore, masterEmail, []byte("s"))

	if _, err := svc.SignUp(ctx, "ann@example.com", "pw", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := backendStore.From(TableUsers).Select().Eq("email", "ann@example.com").RunSingle(ctx); err != nil {
		t.Errorf("User row must live on the executor: %v", err)
	}
	if _, err := backendStore.From(TableProfiles).Select().Run(ctx); err != nil {
		t.Errorf("Profile row must live on the executor: %v", err)
	}
	tables := sessionStore.LoadTables()
	if len(tables[TableUsers]) != 0 || len(tables[TableProfiles]) != 0 {
		t.Error("Session store must not receive table rows")
	}
	if sessionStore.LoadSession() == nil {
		t.Error("Session document must stay in the session store")
	}
	if backendStore.LoadSession() != nil {
		t.Error("Executor store must not receive the session document")
	}
}

func TestServiceSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user, profile and session", func(t *testing.T) {
		svc, store := newTestService(t)
		session, err := svc.SignUp(ctx, "ann@example.com", "hunter2", map[string]any{"full_name": "Ann"})
		if err != nil {
			t.Fatal(err)
		}
		if session.AccessToken == "" {
			t.Error("Expected an access token")
		}
		if session.User.Email != "ann@example.com" {
			t.Errorf("Unexpected session email %q", session.User.Email)
		}
		if name, _ := session.User.Metadata["full_name"].(string); name != "Ann" {
			t.Errorf("Metadata not carried into session: %v", session.User.Metadata)
		}

		user, err := store.From(TableUsers).Select().Eq("email", "ann@example.com").RunSingle(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if user.String("password_hash") == "" || user.String("password_hash") == "hunter2" {
			t.Error("Password must be stored hashed")
		}
		if bcrypt.CompareHashAndPassword([]byte(user.String("password_hash")), []byte("hunter2")) != nil {
			t.Error("Stored hash does not verify the password")
		}

		profile, err := store.From(TableProfiles).Select().Eq(tabledoc.AttrID, user.ID()).RunSingle(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if profile.String("role") != RoleClient {
			t.Errorf("role = %q, want %q", profile.String("role"), RoleClient)
		}
		if profile.String("full_name") != "Ann" {
			t.Errorf("full_name = %q, want Ann", profile.String("full_name"))
		}
		if svc.GetSession() == nil {
			t.Error("Expected a stored session after sign-up")
		}
	})

	t.Run("master email gets the admin role", func(t *testing.T) {
		svc, store := newTestService(t)
		// Different casing than the configured address.
		session, err := svc.SignUp(ctx, "Owner@Example.COM", "pw", nil)
		if err != nil {
			t.Fatal(err)
		}
		profile, err := store.From(TableProfiles).Select().Eq(tabledoc.AttrID, session.User.ID).RunSingle(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if profile.String("role") != RoleAdmin {
			t.Errorf("role = %q, want %q", profile.String("role"), RoleAdmin)
		}
	})

	t.Run("conflict is case-insensitive and writes nothing", func(t *testing.T) {
		svc, store := newTestService(t)
		if _, err := svc.SignUp(ctx, "bob@example.com", "pw", nil); err != nil {
			t.Fatal(err)
		}
		before := len(store.LoadTables()[TableUsers])

		_, err := svc.SignUp(ctx, "BOB@example.com", "other", nil)
		if !errors.Is(err, ErrUserExists) {
			t.Fatalf("Expected ErrUserExists, got %v", err)
		}
		tables := store.LoadTables()
		if len(tables[TableUsers]) != before {
			t.Error("Conflicting sign-up must not create a user row")
		}
		if len(tables[TableProfiles]) != before {
			t.Error("Conflicting sign-up must not create a profile row")
		}
	})

	t.Run("empty email or password fails", func(t *testing.T) {
		svc, _ := newTestService(t)
		if _, err := svc.SignUp(ctx, "", "pw", nil); err == nil {
			t.Error("Expected error for empty email")
		}
		if _, err := svc.SignUp(ctx, "a@b.c", "", nil); err == nil {
			t.Error("Expected error for empty password")
		}
	})
}

func TestServiceSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials open a session", func(t *testing.T) {
		svc, _ := newTestService(t)
		if _, err := svc.SignUp(ctx, "ann@example.com", "hunter2", nil); err != nil {
			t.Fatal(err)
		}
		if err := svc.SignOut(ctx); err != nil {
			t.Fatal(err)
		}

		session, err := svc.SignInWithPassword(ctx, "ANN@example.com", "hunter2")
		if err != nil {
			t.Fatal(err)
		}
		if session.User.Email != "ann@example.com" {
			t.Errorf("Unexpected email %q", session.User.Email)
		}
		if svc.GetSession() == nil {
			t.Error("Expected stored session")
		}
	})

	t.Run("unknown email and wrong password look alike", func(t *testing.T) {
		svc, _ := newTestService(t)
		if _, err := svc.SignUp(ctx, "ann@example.com", "hunter2", nil); err != nil {
			t.Fatal(err)
		}
		_, missErr := svc.SignInWithPassword(ctx, "ghost@example.com", "hunter2")
		_, pwErr := svc.SignInWithPassword(ctx, "ann@example.com", "wrong")
		if !errors.Is(missErr, ErrInvalidCredentials) || !errors.Is(pwErr, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials for both, got %v and %v", missErr, pwErr)
		}
	})

	t.Run("account without stored hash accepts any password", func(t *testing.T) {
		svc, store := newTestService(t)
		if _, err := store.From(TableUsers).Insert(tabledoc.Row{"email": "legacy@example.com"}).Run(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SignInWithPassword(ctx, "legacy@example.com", "anything"); err != nil {
			t.Fatalf("Legacy account should sign in, got %v", err)
		}
	})

	t.Run("master sign-in promotes an existing client profile", func(t *testing.T) {
		svc, store := newTestService(t)
		user, err := store.From(TableUsers).Insert(tabledoc.Row{"email": masterEmail}).RunSingle(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.From(TableProfiles).Insert(tabledoc.Row{
			tabledoc.AttrID: user.ID(),
			"email":         masterEmail,
			"role":          RoleClient,
		}).Run(ctx); err != nil {
			t.Fatal(err)
		}

		if _, err := svc.SignInWithPassword(ctx, masterEmail, "whatever"); err != nil {
			t.Fatal(err)
		}
		profile, err := store.From(TableProfiles).Select().Eq(tabledoc.AttrID, user.ID()).RunSingle(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if profile.String("role") != RoleAdmin {
			t.Errorf("role = %q, want %q after master sign-in", profile.String("role"), RoleAdmin)
		}
	})
}

func TestServiceSignOut(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if _, err := svc.SignUp(ctx, "ann@example.com", "pw", nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	if svc.GetSession() != nil {
		t.Error("Expected nil session after sign-out")
	}
	// Signing out twice is fine.
	if err := svc.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestServiceAuthStateChange(t *testing.T) {
	ctx := context.Background()

	t.Run("replays current state on registration", func(t *testing.T) {
		svc, _ := newTestService(t)
		var events []tabledoc.AuthEvent
		sub := svc.OnAuthStateChange(func(event tabledoc.AuthEvent, _ *tabledoc.Session) {
			events = append(events, event)
		})
		defer sub.Unsubscribe()
		if len(events) != 1 || events[0] != tabledoc.EventSignedOut {
			t.Fatalf("Expected immediate SIGNED_OUT replay, got %v", events)
		}

		if _, err := svc.SignUp(ctx, "ann@example.com", "pw", nil); err != nil {
			t.Fatal(err)
		}
		sub2 := svc.OnAuthStateChange(func(event tabledoc.AuthEvent, session *tabledoc.Session) {
			if event != tabledoc.EventSignedIn || session == nil {
				t.Errorf("Expected SIGNED_IN with session, got %v %v", event, session)
			}
		})
		sub2.Unsubscribe()
	})

	t.Run("full cycle notifies exactly once per transition", func(t *testing.T) {
		svc, _ := newTestService(t)
		var events []tabledoc.AuthEvent
		sub := svc.OnAuthStateChange(func(event tabledoc.AuthEvent, _ *tabledoc.Session) {
			events = append(events, event)
		})
		defer sub.Unsubscribe()

		if _, err := svc.SignUp(ctx, "ann@example.com", "pw", nil); err != nil {
			t.Fatal(err)
		}
		if err := svc.SignOut(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SignInWithPassword(ctx, "ann@example.com", "pw"); err != nil {
			t.Fatal(err)
		}

		want := []tabledoc.AuthEvent{
			tabledoc.EventSignedOut, // replay
			tabledoc.EventSignedIn,
			tabledoc.EventSignedOut,
			tabledoc.EventSignedIn,
		}
		if len(events) != len(want) {
			t.Fatalf("Expected %d events, got %v", len(want), events)
		}
		for i := range want {
			if events[i] != want[i] {
				t.Errorf("events[%d] = %v, want %v", i, events[i], want[i])
			}
		}
	})

	t.Run("unsubscribed callback stops receiving", func(t *testing.T) {
		svc, _ := newTestService(t)
		calls := 0
		sub := svc.OnAuthStateChange(func(tabledoc.AuthEvent, *tabledoc.Session) { calls++ })
		sub.Unsubscribe()
		if _, err := svc.SignUp(ctx, "ann@example.com", "pw", nil); err != nil {
			t.Fatal(err)
		}
		if calls != 1 {
			t.Errorf("Expected only the replay call, got %d", calls)
		}
	})
}

func TestServiceResetPassword(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("always succeeds", func(t *testing.T) {
		if err := svc.ResetPasswordForEmail(context.Background(), "nobody@example.com"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.ResetPasswordForEmail(ctx, "a@b.c"); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestServiceSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := tabledoc.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, store, masterEmail, []byte("s"))
	if _, err := svc.SignUp(ctx, "ann@example.com", "pw", nil); err != nil {
		t.Fatal(err)
	}

	store2, err := tabledoc.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc2 := NewService(store2, store2, masterEmail, []byte("s"))
	session := svc2.GetSession()
	if session == nil || session.User.Email != "ann@example.com" {
		t.Fatalf("Expected restored session, got %+v", session)
	}
}

func TestToken(t *testing.T) {
	secret := []byte("test-secret")

	t.Run("round trip", func(t *testing.T) {
		token, err := IssueToken(secret, "u1", "ann@example.com", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		claims, err := ParseToken(secret, token)
		if err != nil {
			t.Fatal(err)
		}
		if claims.Subject != "u1" || claims.Email != "ann@example.com" {
			t.Errorf("Unexpected claims %+v", claims)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, err := IssueToken(secret, "u1", "a@b.c", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseToken([]byte("other"), token); err == nil {
			t.Error("Expected parse failure with wrong secret")
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := IssueToken(secret, "u1", "a@b.c", -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ParseToken(secret, token); err == nil {
			t.Error("Expected parse failure for expired token")
		}
	})
}
