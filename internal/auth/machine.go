package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/events"
	"github.com/dukerupert/shoplist/internal/model"
)

// ErrWrongState is returned when an operation is invoked in a state that
// does not accept it. The session is left untouched.
var ErrWrongState = errors.New("operation not allowed in current session state")

// Redirect targets published with session transitions.
const (
	RedirectSecondFactor = "/totp"
	RedirectDashboard    = "/dashboard"
	RedirectLogin        = "/login"
)

// Authenticator is the backend side of the machine. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	VerifySecondFactor(ctx context.Context, email, code string) (string, error)
	CheckSession(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	SetToken(token string)
}

// TokenStore persists the session credential between runs.
type TokenStore interface {
	Save(ctx context.Context, cred model.StoredCredential) error
	Load(ctx context.Context) (*model.StoredCredential, error)
	Clear(ctx context.Context) error
}

// Notifier receives every session transition.
type Notifier interface {
	Publish(events.Event)
}

// CheckResult is the outcome of a session probe.
type CheckResult string

const (
	CheckSuccess CheckResult = "success"
	CheckFail    CheckResult = "fail"
	CheckPending CheckResult = "pending"
)

// Machine owns the process-wide session. All session changes go through
// its methods.
type Machine struct {
	backend Authenticator
	store   TokenStore
	notify  Notifier
	policy  Policy
	logger  *slog.Logger
	now     func() time.Time

	// ops serializes operations so transitions never interleave.
	ops sync.Mutex

	mu        sync.RWMutex
	session   model.Session
	lastCheck CheckResult
	checking  bool
}

// NewMachine creates a machine in the anonymous state. store and notify
// may be nil.
func NewMachine(backend Authenticator, store TokenStore, notify Notifier, policy Policy, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MinPasswordLength == 0 {
		policy = DefaultPolicy()
	}
	return &Machine{
		backend: backend,
		store:   store,
		notify:  notify,
		policy:  policy,
		logger:  logger.With("component", "auth"),
		now:     time.Now,
		session: model.Session{Status: model.StatusAnonymous},
	}
}

// Session returns a snapshot of the current session.
func (m *Machine) Session() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	if s.ExpiresAt != nil {
		exp := *s.ExpiresAt
		s.ExpiresAt = &exp
	}
	return s
}

// Status returns the current state.
func (m *Machine) Status() model.SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Status
}

// LastCheck returns CheckPending while a probe is in flight, otherwise the
// result of the most recent probe. It is empty before the first probe.
func (m *Machine) LastCheck() CheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.checking {
		return CheckPending
	}
	return m.lastCheck
}

// Restore loads the stored credential. An unexpired one puts the machine
// straight into Authenticated; anything else is cleared.
func (m *Machine) Restore(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if m.store == nil || m.Status() != model.StatusAnonymous {
		return nil
	}
	cred, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return nil
	}
	if cred.Token == "" || cred.Expired(m.now()) {
		m.logger.Info("discarding stored credential", "email", cred.Email, "expired", cred.Expired(m.now()))
		return m.clearStored(ctx)
	}
	if _, err := DecodeCredential(cred.Token); err != nil {
		m.logger.Warn("discarding unreadable stored credential", "error", err)
		return m.clearStored(ctx)
	}

	m.backend.SetToken(cred.Token)
	m.set(model.Session{
		Status:    model.StatusAuthenticated,
		Token:     cred.Token,
		Email:     cred.Email,
		ExpiresAt: cred.ExpiresAt,
	}, RedirectDashboard)
	m.logger.Info("session restored", "email", cred.Email)
	return nil
}

// SubmitCredentials starts a login. It moves to PendingTwoFactor when the
// account has a second factor, otherwise to Authenticated.
func (m *Machine) SubmitCredentials(ctx context.Context, email, password string) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if m.Status() != model.StatusAnonymous {
		return ErrWrongState
	}
	email, err := m.policy.CheckLogin(email, password)
	if err != nil {
		return err
	}

	res, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.logFailure("login failed", err, "email", email)
		return err
	}

	if res.SecondFactor {
		m.set(model.Session{Status: model.StatusPendingTwoFactor, PendingEmail: email}, RedirectSecondFactor)
		m.logger.Info("second factor required", "email", email)
		return nil
	}
	return m.authenticate(ctx, email, res.Token)
}

// SubmitSecondFactor completes a login that is waiting for a TOTP code.
func (m *Machine) SubmitSecondFactor(ctx context.Context, code string) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	s := m.Session()
	if s.Status != model.StatusPendingTwoFactor {
		return ErrWrongState
	}
	code = NormalizeCode(code)
	if code == "" {
		return api.Errorf(api.KindValidation, "verify second factor", "Code is required.")
	}

	token, err := m.backend.VerifySecondFactor(ctx, s.PendingEmail, code)
	if err != nil {
		m.logFailure("second factor rejected", err, "email", s.PendingEmail)
		return err
	}
	return m.authenticate(ctx, s.PendingEmail, token)
}

// CancelSecondFactor abandons a login waiting for a code.
func (m *Machine) CancelSecondFactor() error {
	m.ops.Lock()
	defer m.ops.Unlock()

	if m.Status() != model.StatusPendingTwoFactor {
		return ErrWrongState
	}
	m.set(model.Session{Status: model.StatusAnonymous}, RedirectLogin)
	return nil
}

// authenticate decodes token and enters Authenticated. The caller holds ops.
func (m *Machine) authenticate(ctx context.Context, email, token string) error {
	cred, err := DecodeCredential(token)
	if err != nil {
		m.logger.Error("backend issued unreadable credential", "email", email, "error", err)
		return err
	}
	if cred.Email != "" {
		email = cred.Email
	}

	m.backend.SetToken(token)
	m.set(model.Session{
		Status:    model.StatusAuthenticated,
		Token:     token,
		Email:     email,
		ExpiresAt: cred.ExpiresAt,
	}, RedirectDashboard)
	m.logger.Info("authenticated", "email", email)

	if m.store != nil {
		err := m.store.Save(ctx, model.StoredCredential{
			Email:     email,
			Token:     token,
			ExpiresAt: cred.ExpiresAt,
			CreatedAt: m.now().UTC(),
		})
		if err != nil {
			m.logger.Error("persist credential", "error", err)
		}
	}
	return nil
}

// CheckSession asks the backend whether the session is still valid. A
// definitive rejection logs the user out whatever the prior state; a
// network failure leaves the session alone and reports CheckPending.
func (m *Machine) CheckSession(ctx context.Context) (CheckResult, error) {
	m.ops.Lock()
	defer m.ops.Unlock()

	s := m.Session()
	if s.Token == "" {
		m.invalidate(ctx, s)
		m.recordCheck(CheckFail)
		return CheckFail, nil
	}

	m.mu.Lock()
	m.checking = true
	m.mu.Unlock()

	ok, err := m.backend.CheckSession(ctx)

	m.mu.Lock()
	m.checking = false
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("session check inconclusive", "error", err)
		return CheckPending, err
	}
	if !ok {
		m.logger.Info("session rejected by backend", "email", s.Email)
		m.invalidate(ctx, s)
		m.recordCheck(CheckFail)
		return CheckFail, nil
	}
	m.recordCheck(CheckSuccess)
	return CheckSuccess, nil
}

func (m *Machine) recordCheck(r CheckResult) {
	m.mu.Lock()
	m.lastCheck = r
	m.mu.Unlock()
}

// invalidate forces the anonymous state and drops any stored credential.
func (m *Machine) invalidate(ctx context.Context, prior model.Session) {
	m.backend.SetToken("")
	if err := m.clearStored(ctx); err != nil {
		m.logger.Error("clear credential", "error", err)
	}
	if prior.Status == model.StatusAnonymous {
		// Nothing changed; still tell the UI where to go.
		m.publish(model.StatusAnonymous, RedirectLogin)
		return
	}
	m.set(model.Session{Status: model.StatusAnonymous}, RedirectLogin)
}

// Logout ends an authenticated session. It is a no-op in any other state.
// The backend is notified best-effort; local state is cleared regardless.
func (m *Machine) Logout(ctx context.Context) error {
	m.ops.Lock()
	defer m.ops.Unlock()

	s := m.Session()
	if s.Status != model.StatusAuthenticated {
		return nil
	}

	if err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("backend logout failed", "error", err)
	}
	m.backend.SetToken("")
	if err := m.clearStored(ctx); err != nil {
		m.logger.Error("clear credential", "error", err)
	}
	m.set(model.Session{Status: model.StatusAnonymous}, RedirectLogin)
	m.logger.Info("logged out", "email", s.Email)
	return nil
}

func (m *Machine) clearStored(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (m *Machine) set(s model.Session, redirect string) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	m.publish(s.Status, redirect)
}

func (m *Machine) publish(status model.SessionStatus, redirect string) {
	if m.notify == nil {
		return
	}
	m.notify.Publish(events.New("session", string(status), 0).WithRedirect(redirect))
}

func (m *Machine) logFailure(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if api.KindOf(err) == api.KindProtocol {
		m.logger.Error(msg, args...)
		return
	}
	m.logger.Warn(msg, args...)
}
