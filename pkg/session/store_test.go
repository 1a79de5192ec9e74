package session_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/campuseats-dev/campuseats/internal/mockapi"
	"github.com/campuseats-dev/campuseats/pkg/api"
	"github.com/campuseats-dev/campuseats/pkg/session"
	"github.com/campuseats-dev/campuseats/pkg/storage"
)

// harness wires a mock backend, API client, and session store the way a
// real client process does.
type harness struct {
	backend  *mockapi.Server
	server   *httptest.Server
	storage  *storage.MemoryStore
	session  *session.Store
	logouts  int
	unauthed func()
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		backend: mockapi.New(),
		storage: storage.NewMemoryStore(),
	}
	h.backend.Seed(mockapi.Account{
		Phone:     "0912345678",
		Password:  "secret123",
		Role:      "student",
		FirstName: "Ada",
		LastName:  "Osei",
		Email:     "ada@campus.edu",
	})
	h.server = httptest.NewServer(h.backend.Router())

	client := api.New(h.server.URL,
		api.WithTokenSource(func() string {
			if h.session == nil {
				return ""
			}
			return h.session.Token()
		}),
		api.WithOnUnauthorized(func() {
			h.logouts++
			h.session.ForceLogout()
			if h.unauthed != nil {
				h.unauthed()
			}
		}),
	)
	h.session = session.New(client, h.storage)

	t.Cleanup(func() {
		h.session.Close()
		h.server.Close()
		h.storage.Close()
	})
	return h
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := newHarness(t)

		payload, err := h.session.Login(context.Background(), "0912345678", "secret123")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if payload.Token == "" {
			t.Error("payload has no token")
		}
		if payload.Role != session.RoleStudent {
			t.Errorf("role = %q, want student", payload.Role)
		}

		if !h.session.IsAuthenticated() {
			t.Error("IsAuthenticated = false after login")
		}
		if !h.session.IsStudent() {
			t.Error("IsStudent = false after student login")
		}
		user, ok := h.session.User()
		if !ok {
			t.Fatal("no user after login")
		}
		if user.FirstName != "Ada" || user.Role != session.RoleStudent {
			t.Errorf("user = %+v", user)
		}

		// Token and user snapshot are persisted.
		if _, ok := h.storage.Get(storage.KeyToken); !ok {
			t.Error("token not persisted")
		}
		if _, ok := h.storage.Get(storage.KeyUser); !ok {
			t.Error("user snapshot not persisted")
		}
	})

	t.Run("WrongPasswordLeavesStateUntouched", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.session.Login(context.Background(), "0912345678", "wrong")
		if err == nil {
			t.Fatal("expected error")
		}
		// The server's message is surfaced, not a generic one.
		if !strings.Contains(err.Error(), "invalid phone or password") {
			t.Errorf("error = %v", err)
		}
		if h.session.IsAuthenticated() {
			t.Error("authenticated after failed login")
		}
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		h := newHarness(t)

		if _, err := h.session.Login(context.Background(), "", "x"); !errors.Is(err, session.ErrMissingCredentials) {
			t.Errorf("error = %v, want ErrMissingCredentials", err)
		}
	})

	t.Run("ClaimsDecoded", func(t *testing.T) {
		h := newHarness(t)
		h.session.Login(context.Background(), "0912345678", "secret123")

		claims, ok := h.session.Claims()
		if !ok {
			t.Fatal("no claims")
		}
		if claims.Role != "student" || claims.UserID == 0 {
			t.Errorf("claims = %+v", claims)
		}
		if h.session.TokenExpired() {
			t.Error("fresh token reported expired")
		}
	})
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	payload, err := h.session.Register(context.Background(), session.RegisterProfile{
		FirstName: "Kofi",
		StudentID: "S-100",
		Phone:     "0200000000",
		Password:  "hunter22",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if payload.Role != session.RoleStudent {
		t.Errorf("role = %q, want student", payload.Role)
	}
	if !h.session.IsAuthenticated() {
		t.Error("not authenticated after register")
	}

	// The new account can log in again.
	h.session.Logout(context.Background())
	if _, err := h.session.Login(context.Background(), "0200000000", "hunter22"); err != nil {
		t.Fatalf("login after register failed: %v", err)
	}
}

func TestLogout(t *testing.T) {
	t.Run("ClearsStateAndStorage", func(t *testing.T) {
		h := newHarness(t)
		h.session.Login(context.Background(), "0912345678", "secret123")

		h.session.Logout(context.Background())

		if h.session.IsAuthenticated() {
			t.Error("still authenticated")
		}
		if _, ok := h.session.User(); ok {
			t.Error("user still present")
		}
		if _, ok := h.storage.Get(storage.KeyToken); ok {
			t.Error("token still persisted")
		}
		if _, ok := h.storage.Get(storage.KeyUser); ok {
			t.Error("user snapshot still persisted")
		}
	})

	t.Run("UnreachableServerStillClearsLocally", func(t *testing.T) {
		h := newHarness(t)
		h.session.Login(context.Background(), "0912345678", "secret123")

		// Kill the backend; logout must not block local cleanup.
		h.server.Close()
		h.session.Logout(context.Background())

		if h.session.IsAuthenticated() {
			t.Error("still authenticated after offline logout")
		}
	})
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	h.session.Login(context.Background(), "0912345678", "secret123")

	t.Run("WrongOldPassword", func(t *testing.T) {
		err := h.session.ChangePassword(context.Background(), "nope", "newpass99")
		if err == nil {
			t.Fatal("expected error")
		}
		if !h.session.IsAuthenticated() {
			t.Error("session cleared by failed password change")
		}
	})

	t.Run("Success", func(t *testing.T) {
		if err := h.session.ChangePassword(context.Background(), "secret123", "newpass99"); err != nil {
			t.Fatalf("ChangePassword failed: %v", err)
		}
		// User stays logged in.
		if !h.session.IsAuthenticated() {
			t.Error("session cleared by successful password change")
		}
		if err := h.session.LoadCurrentUser(context.Background()); err != nil {
			t.Errorf("token invalidated by password change: %v", err)
		}
	})
}

func TestLoadCurrentUser(t *testing.T) {
	t.Run("RestoresAcrossRestart", func(t *testing.T) {
		h := newHarness(t)
		h.session.Login(context.Background(), "0912345678", "secret123")
		token := h.session.Token()
		h.session.Close()

		// A fresh store over the same storage models a reload.
		client := api.New(h.server.URL, api.WithTokenSource(func() string { return token }))
		restored := session.New(client, h.storage)
		defer restored.Close()

		if !restored.IsAuthenticated() {
			t.Fatal("token not restored")
		}
		if err := restored.LoadCurrentUser(context.Background()); err != nil {
			t.Fatalf("LoadCurrentUser failed: %v", err)
		}
		user, ok := restored.User()
		if !ok || user.FirstName != "Ada" {
			t.Errorf("user = %+v, %v", user, ok)
		}
	})

	t.Run("InvalidTokenClearsLocally", func(t *testing.T) {
		h := newHarness(t)
		h.storage.Set(storage.KeyToken, []byte("garbage-token"), "seed")

		client := api.New(h.server.URL)
		restored := session.New(client, h.storage)
		defer restored.Close()

		if err := restored.LoadCurrentUser(context.Background()); err == nil {
			t.Fatal("expected error for invalid token")
		}
		if restored.IsAuthenticated() {
			t.Error("still authenticated with invalid token")
		}
		if _, ok := h.storage.Get(storage.KeyToken); ok {
			t.Error("invalid token still persisted")
		}
	})

	t.Run("CorruptedUserSnapshotDropped", func(t *testing.T) {
		h := newHarness(t)
		h.session.Login(context.Background(), "0912345678", "secret123")
		h.storage.Set(storage.KeyUser, []byte("{broken"), "seed")

		// Reload from storage: token survives, user snapshot is dropped
		// until LoadCurrentUser refreshes it.
		restored := session.New(api.New(h.server.URL), h.storage)
		defer restored.Close()

		if !restored.IsAuthenticated() {
			t.Error("token lost with corrupted user snapshot")
		}
		if _, ok := restored.User(); ok {
			t.Error("user present despite corrupted snapshot")
		}
	})
}

func TestForcedLogout(t *testing.T) {
	h := newHarness(t)
	h.session.Login(context.Background(), "0912345678", "secret123")

	// Revoke the token server-side through a second client sharing it, so
	// the next ordinary call from this session hits an ambient 401.
	shared := h.session.Token()
	otherStorage := storage.NewMemoryStore()
	otherStorage.Set(storage.KeyToken, []byte(shared), "seed")
	other := session.New(
		api.New(h.server.URL, api.WithTokenSource(func() string { return shared })),
		otherStorage)
	other.Logout(context.Background())
	other.Close()
	otherStorage.Close()

	h.logouts = 0
	if err := h.session.LoadCurrentUser(context.Background()); err == nil {
		t.Fatal("expected 401 after revocation")
	}

	if h.logouts != 1 {
		t.Errorf("unauthorized hook fired %d times, want 1", h.logouts)
	}
	if h.session.IsAuthenticated() {
		t.Error("still authenticated after forced logout")
	}
	if _, ok := h.session.User(); ok {
		t.Error("user still present after forced logout")
	}
}

func TestUpdateUser(t *testing.T) {
	h := newHarness(t)
	h.session.Login(context.Background(), "0912345678", "secret123")

	url := "https://cdn.campus.edu/p/7.png"
	h.session.UpdateUser(session.UserPatch{ProfileImageURL: &url})

	user, _ := h.session.User()
	if user.ProfileImageURL != url {
		t.Errorf("ProfileImageURL = %q", user.ProfileImageURL)
	}
	// Untouched fields survive the merge.
	if user.FirstName != "Ada" {
		t.Errorf("FirstName = %q", user.FirstName)
	}

	// The patch is persisted without a network round trip.
	restored := session.New(api.New(h.server.URL), h.storage)
	defer restored.Close()
	if u, ok := restored.User(); !ok || u.ProfileImageURL != url {
		t.Errorf("persisted user = %+v, %v", u, ok)
	}
}

func TestRoleViews(t *testing.T) {
	h := newHarness(t)
	h.backend.Seed(mockapi.Account{Phone: "0555", Password: "pw1234", Role: "vendor", FirstName: "Vee"})

	h.session.Login(context.Background(), "0555", "pw1234")

	// Exactly one role view is true at a time.
	roles := map[string]bool{
		"student": h.session.IsStudent(),
		"vendor":  h.session.IsVendor(),
		"rider":   h.session.IsRider(),
		"admin":   h.session.IsAdmin(),
	}
	var trueCount int
	for _, v := range roles {
		if v {
			trueCount++
		}
	}
	if trueCount != 1 || !roles["vendor"] {
		t.Errorf("role views = %+v", roles)
	}
}

func TestOutOfBandClear(t *testing.T) {
	h := newHarness(t)
	h.session.Login(context.Background(), "0912345678", "secret123")

	// Another instance (or the 401 interceptor in another tab) clears the
	// persisted session; this store observes it via the change bus.
	h.storage.Delete(storage.KeyToken, "other-tab")
	h.storage.Delete(storage.KeyUser, "other-tab")

	if h.session.IsAuthenticated() {
		t.Error("store did not pick up out-of-band clear")
	}
	if _, ok := h.session.User(); ok {
		t.Error("user survived out-of-band clear")
	}
}
