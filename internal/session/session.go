// Package session owns the lifecycle of the signed-in user.
// A Session is created by a successful login and destroyed by logout; it is
// passed explicitly to everything that needs the user's identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"StockSimDesk/internal/model"

	"github.com/rs/zerolog"
)

// ErrNoSession is returned when an operation needs a signed-in user and there is none.
var ErrNoSession = errors.New("no active session")

// ErrInvalid marks credentials or form fields rejected before reaching the backend.
var ErrInvalid = errors.New("invalid input")

// Session identifies the signed-in user.
type Session struct {
	Email     string    `json:"email"`
	StartedAt time.Time `json:"startedAt"`
}

// DisplayName is the upper-cased local part of the email.
func (s *Session) DisplayName() string {
	local, _, _ := strings.Cut(s.Email, "@")
	return strings.ToUpper(local)
}

// Authenticator is the subset of backend actions the manager needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.ActionResult, error)
	Register(ctx context.Context, email, password, otp string) (*model.ActionResult, error)
	SendOTP(ctx context.Context, email, purpose string) (*model.ActionResult, error)
	ResetPassword(ctx context.Context, email, password, otp string) (*model.ActionResult, error)
}

// OTP purposes accepted by SendOTP.
const (
	PurposeRegister = "register"
	PurposeReset    = "reset"
)

// Manager holds at most one active session.
type Manager struct {
	mu      sync.RWMutex
	auth    Authenticator
	current *Session
	now     func() time.Time
	log     zerolog.Logger
}

// NewManager creates a Manager with no active session.
func NewManager(auth Authenticator, log zerolog.Logger) *Manager {
	return &Manager{
		auth: auth,
		now:  time.Now,
		log:  log.With().Str("component", "session").Logger(),
	}
}

// Login authenticates against the backend and starts a session. Any previous session ends.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalid)
	}
	if _, err := m.auth.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s := &Session{Email: email, StartedAt: m.now()}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.log.Info().Str("email", email).Msg("session started")
	return s, nil
}

// Logout ends the active session, if any.
func (m *Manager) Logout() {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()
	if s != nil {
		m.log.Info().Str("email", s.Email).Dur("duration", m.now().Sub(s.StartedAt)).Msg("session ended")
	}
}

// Current returns the active session or ErrNoSession.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	s := *m.current
	return &s, nil
}

// Register creates an account with an OTP previously sent by SendOTP.
func (m *Manager) Register(ctx context.Context, email, password, otp string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if password == "" || otp == "" {
		return fmt.Errorf("%w: password and otp are required", ErrInvalid)
	}
	if _, err := m.auth.Register(ctx, email, password, otp); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// SendOTP asks the backend to email a one-time code for purpose.
func (m *Manager) SendOTP(ctx context.Context, email, purpose string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if purpose != PurposeReset {
		purpose = PurposeRegister
	}
	if _, err := m.auth.SendOTP(ctx, email, purpose); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using an OTP.
func (m *Manager) ResetPassword(ctx context.Context, email, password, otp string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if password == "" || otp == "" {
		return fmt.Errorf("%w: password and otp are required", ErrInvalid)
	}
	if _, err := m.auth.ResetPassword(ctx, email, password, otp); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: email %q", ErrInvalid, email)
	}
	return strings.ToLower(email), nil
}
