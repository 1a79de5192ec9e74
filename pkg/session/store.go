package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/campuseats-dev/campuseats/pkg/api"
	"github.com/campuseats-dev/campuseats/pkg/storage"
)

// Auth endpoints, relative to the API base URL.
const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathLogout         = "/auth/logout"
	pathMe             = "/auth/me"
	pathChangePassword = "/auth/change-password"
)

var (
	// ErrMissingCredentials is returned before any network call when a
	// required field is empty.
	ErrMissingCredentials = errors.New("session: missing credentials")

	// ErrNotAuthenticated is returned by operations that require a token.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is the session state manager. Construct one per client process
// and share it; every consumer reads identity through it and the HTTP
// client reads the bearer token through Token.
type Store struct {
	client  *api.Client
	storage storage.Store
	logger  *slog.Logger
	origin  string
	cancel  func()

	mu    sync.RWMutex
	token string
	user  *User
}

// New creates a Store over the given API client and durable storage,
// restoring any persisted token and user snapshot. The client should be
// constructed with a token source and 401 hook that point back at this
// store (via a late-bound closure), so every outgoing call carries the
// current token and an ambient 401 tears the session down.
func New(client *api.Client, store storage.Store, opts ...Option) *Store {
	s := &Store{
		client:  client,
		storage: store,
		logger:  slog.Default(),
		origin:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.restore()
	s.cancel = store.Subscribe(s.onStorageEvent)
	return s
}

// Close unsubscribes from storage events. Persisted state is kept.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Login authenticates with a phone number (the student identifier) and
// password. On success the token and normalized user are set atomically
// and persisted, and the raw auth payload is returned. On failure prior
// state is untouched and the error carries the server's message.
func (s *Store) Login(ctx context.Context, phone, password string) (*AuthPayload, error) {
	if phone == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var payload AuthPayload
	body := map[string]string{"phone": phone, "password": password}
	if err := s.client.Post(ctx, pathLogin, body, &payload); err != nil {
		return nil, err
	}

	s.adopt(&payload)
	s.logger.Info("session: logged in", "user_id", payload.UserID, "role", payload.Role)
	return &payload, nil
}

// Register creates an account. The backend returns the same payload shape
// as login, so the success contract is identical.
func (s *Store) Register(ctx context.Context, profile RegisterProfile) (*AuthPayload, error) {
	if profile.Phone == "" || profile.Password == "" {
		return nil, ErrMissingCredentials
	}

	var payload AuthPayload
	if err := s.client.Post(ctx, pathRegister, profile, &payload); err != nil {
		return nil, err
	}

	s.adopt(&payload)
	s.logger.Info("session: registered", "user_id", payload.UserID, "role", payload.Role)
	return &payload, nil
}

// Logout calls the backend invalidation endpoint best-effort (an
// unreachable server is logged and never blocks cleanup), then
// unconditionally clears the token, user, and persisted copies.
func (s *Store) Logout(ctx context.Context) {
	if s.IsAuthenticated() {
		if err := s.client.Post(ctx, pathLogout, nil, nil); err != nil {
			s.logger.Warn("session: logout endpoint failed", "error", err)
		}
	}
	s.clearLocal()
}

// ChangePassword delegates to the backend. The session is untouched on
// success; on failure the error is surfaced and no state changes.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrMissingCredentials
	}
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	return s.client.Post(ctx, pathChangePassword, body, nil)
}

// LoadCurrentUser fetches the authoritative user record for a persisted
// token. Call once at startup when IsAuthenticated is true. An expired or
// invalid token clears local state without calling the invalidation
// endpoint again.
func (s *Store) LoadCurrentUser(ctx context.Context) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	var record userRecord
	if err := s.client.Get(ctx, pathMe, &record); err != nil {
		s.logger.Warn("session: failed to load current user", "error", err)
		s.clearLocal()
		return err
	}

	user := record.normalize()
	s.mu.Lock()
	s.user = &user
	s.persistUserLocked()
	s.mu.Unlock()
	return nil
}

// UpdateUser applies a local-only merge patch to the user record, e.g.
// after a profile-image upload, without a network round trip.
// A no-op when no user is set.
func (s *Store) UpdateUser(patch UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	updated := patch.apply(*s.user)
	s.user = &updated
	s.persistUserLocked()
}

// ForceLogout clears local state without any network call. It is the
// HTTP client's ambient-401 hook; the UI layer pairs it with a redirect
// to the login entry point.
func (s *Store) ForceLogout() {
	s.logger.Info("session: forced logout")
	s.clearLocal()
}

// Token returns the bearer token, "" when unauthenticated. Suitable as
// the HTTP client's token source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the current user. ok is false when no validated user is
// held (including the window while a restored token is being validated).
func (s *Store) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// IsStudent reports whether the current user is a student/customer.
func (s *Store) IsStudent() bool { return s.hasRole(RoleStudent) }

// IsVendor reports whether the current user is a vendor.
func (s *Store) IsVendor() bool { return s.hasRole(RoleVendor) }

// IsRider reports whether the current user is a delivery rider.
func (s *Store) IsRider() bool { return s.hasRole(RoleRider) }

// IsAdmin reports whether the current user is an administrator.
func (s *Store) IsAdmin() bool { return s.hasRole(RoleAdmin) }

func (s *Store) hasRole(role Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == role
}

// adopt atomically installs the auth payload's token and user, persisting
// both.
func (s *Store) adopt(payload *AuthPayload) {
	user := payload.user()

	s.mu.Lock()
	s.token = payload.Token
	s.user = &user
	if err := s.storage.Set(storage.KeyToken, []byte(payload.Token), s.origin); err != nil {
		s.logger.Warn("session: persist token failed", "error", err)
	}
	s.persistUserLocked()
	s.mu.Unlock()
}

// persistUserLocked writes the user snapshot. Caller holds s.mu.
func (s *Store) persistUserLocked() {
	if s.user == nil {
		return
	}
	data, err := json.Marshal(s.user)
	if err != nil {
		s.logger.Warn("session: marshal user failed", "error", err)
		return
	}
	if err := s.storage.Set(storage.KeyUser, data, s.origin); err != nil {
		s.logger.Warn("session: persist user failed", "error", err)
	}
}

// clearLocal removes the token, user, and persisted copies.
func (s *Store) clearLocal() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	if err := s.storage.Delete(storage.KeyToken, s.origin); err != nil {
		s.logger.Warn("session: clear token failed", "error", err)
	}
	if err := s.storage.Delete(storage.KeyUser, s.origin); err != nil {
		s.logger.Warn("session: clear user failed", "error", err)
	}
	s.mu.Unlock()
}

// restore loads the persisted token and user snapshot. A corrupted user
// snapshot is dropped silently; LoadCurrentUser refreshes it.
func (s *Store) restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil

	if data, ok := s.storage.Get(storage.KeyToken); ok {
		s.token = string(data)
	}
	if s.token == "" {
		return
	}

	if data, ok := s.storage.Get(storage.KeyUser); ok {
		var user User
		if err := json.Unmarshal(data, &user); err != nil {
			s.logger.Warn("session: corrupted persisted user, dropping", "error", err)
		} else {
			s.user = &user
		}
	}
}

// onStorageEvent reloads session state written by another instance,
// including the out-of-band clear performed by a forced logout elsewhere.
func (s *Store) onStorageEvent(ev storage.Event) {
	if ev.Origin == s.origin {
		return
	}
	if ev.Key != storage.KeyToken && ev.Key != storage.KeyUser {
		return
	}
	s.restore()
}
