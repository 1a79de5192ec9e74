// Package mockapi is a development and test stand-in for the CampusEats
// backend. It serves the auth endpoints the client core consumes, with
// the backend's envelope and payload shapes, plus the realtime websocket
// channel. Accounts are in-memory fixtures with plaintext passwords; this
// is a harness, not a server.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Account is one seeded user fixture.
type Account struct {
	ID              int64
	Email           string
	Phone           string
	Password        string
	Role            string
	FirstName       string
	LastName        string
	StudentID       string
	ProfileImageURL string
}

// envelope mirrors the backend's uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// tokenClaims mirrors the backend's JWT claims.
type tokenClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Server is the mock backend.
type Server struct {
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	accounts map[string]*Account // keyed by phone
	nextID   int64
	revoked  map[string]bool

	hub *hub
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the JWT signing secret.
func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithTokenTTL sets how long minted tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server with no accounts. Seed fixtures before use.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("campuseats-mock-secret"),
		tokenTTL: 24 * time.Hour,
		logger:   slog.Default(),
		accounts: make(map[string]*Account),
		nextID:   1,
		revoked:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.logger)
	return s
}

// Seed registers an account fixture, assigning an ID when absent, and
// returns the assigned ID.
func (s *Server) Seed(acc Account) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == 0 {
		acc.ID = s.nextID
		s.nextID++
	} else if acc.ID >= s.nextID {
		s.nextID = acc.ID + 1
	}
	if acc.Role == "" {
		acc.Role = "student"
	}
	s.accounts[acc.Phone] = &acc
	return acc.ID
}

// Notify pushes a notification event to every websocket connection
// belonging to userID.
func (s *Server) Notify(userID int64, event any) {
	s.hub.send(userID, event)
}

// Router returns the mock backend's HTTP handler. Mount it at the API
// base path the client is configured with.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Get("/auth/me", s.requireAuth(s.handleMe))
	r.Post("/auth/change-password", s.requireAuth(s.handleChangePassword))
	r.Post("/auth/logout", s.requireAuth(s.handleLogout))
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Phone]
	s.mu.Unlock()
	if !ok || acc.Password != req.Password {
		sendError(w, http.StatusUnauthorized, "login failed", "invalid phone or password")
		return
	}

	s.sendAuthResponse(w, acc)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		StudentID string `json:"student_id"`
		Phone     string `json:"phone"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if req.Phone == "" || req.Password == "" {
		sendError(w, http.StatusBadRequest, "registration failed", "phone and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Phone]; exists {
		s.mu.Unlock()
		sendError(w, http.StatusConflict, "registration failed", "phone already registered")
		return
	}
	acc := &Account{
		ID:        s.nextID,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		Role:      "student",
		FirstName: req.FirstName,
		LastName:  req.LastName,
		StudentID: req.StudentID,
	}
	s.nextID++
	s.accounts[req.Phone] = acc
	s.mu.Unlock()

	s.sendAuthResponse(w, acc)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, acc *Account) {
	sendSuccess(w, http.StatusOK, "", map[string]any{
		"id":                acc.ID,
		"email":             acc.Email,
		"phone":             acc.Phone,
		"role":              acc.Role,
		"first_name":        acc.FirstName,
		"last_name":         acc.LastName,
		"profile_image_url": acc.ProfileImageURL,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, acc *Account) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.Password != req.OldPassword {
		sendError(w, http.StatusBadRequest, "change password failed", "old password is incorrect")
		return
	}
	if len(req.NewPassword) < 6 {
		sendError(w, http.StatusBadRequest, "change password failed", "password must be at least 6 characters")
		return
	}
	acc.Password = req.NewPassword
	sendSuccess(w, http.StatusOK, "password changed", nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, acc *Account) {
	token := bearerToken(r)
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
	sendSuccess(w, http.StatusOK, "logged out", nil)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	acc := s.authenticate(r.URL.Query().Get("token"))
	if acc == nil {
		sendError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return
	}
	s.hub.serve(w, r, acc.ID)
}

// requireAuth wraps a handler with bearer-token authentication, returning
// the backend's 401 envelope on failure.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, *Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc := s.authenticate(bearerToken(r))
		if acc == nil {
			sendError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		next(w, r, acc)
	}
}

// authenticate verifies a token and resolves its account. Returns nil for
// missing, malformed, expired, or revoked tokens.
func (s *Server) authenticate(token string) *Account {
	if token == "" {
		return nil
	}

	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return nil
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.ID == claims.UserID {
			return acc
		}
	}
	return nil
}

// mintToken issues an HS256 JWT for acc.
func (s *Server) mintToken(acc *Account) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: acc.ID,
		Email:  acc.Email,
		Role:   acc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) sendAuthResponse(w http.ResponseWriter, acc *Account) {
	token, err := s.mintToken(acc)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "token error", err.Error())
		return
	}
	sendSuccess(w, http.StatusOK, "", map[string]any{
		"token":             token,
		"user_id":           acc.ID,
		"email":             acc.Email,
		"phone":             acc.Phone,
		"first_name":        acc.FirstName,
		"last_name":         acc.LastName,
		"role":              acc.Role,
		"profile_image_url": acc.ProfileImageURL,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func sendSuccess(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data})
}

func sendError(w http.ResponseWriter, status int, message, errStr string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Message: message, Error: errStr})
}
