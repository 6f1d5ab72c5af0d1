// Package session owns the kiosk's credential lifecycle: login, startup
// restoration, silent refresh, recovery after authorization failures, and
// logout. The kiosk runs unattended, so every failure path here must leave
// the process in a state it can continue from without a human present.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/openclinic/kioskboard/internal/api"
	"github.com/openclinic/kioskboard/internal/sessionfile"
)

// Sentinel errors surfaced to callers.
var (
	// ErrNotAuthenticated indicates no session exists. Login is required.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrSessionLost indicates the refresh token was rejected by the
	// authority and the local session was cleared. The kiosk shows a
	// persistent notice instead of navigating away.
	ErrSessionLost = errors.New("session: unrecoverable (re-login required)")
)

// expirySkew is how long before nominal expiry a token is treated as
// expired, so refresh happens ahead of the authority's cutoff.
const expirySkew = 60 * time.Second

// State is the lifecycle state of the manager.
type State int

// Lifecycle states.
const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AuthAPI is the slice of the backend the manager needs. Defined here per
// "accept interfaces, return structs"; satisfied by *api.Client.
type AuthAPI interface {
	Login(ctx context.Context, identity, secret string) (*api.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*api.Credentials, error)
	Validate(ctx context.Context, accessToken string) (bool, error)
	Logout(ctx context.Context, identity, accessToken string) error
}

// SessionStore is the durable storage contract, satisfied by
// *sessionfile.Store.
type SessionStore interface {
	Load() (*sessionfile.Session, error)
	Save(*sessionfile.Session) error
	Clear() error
}

// Manager is the explicitly-constructed session lifecycle owner. It is the
// sole writer of the session store and implements api.TokenSource for
// protected requests.
type Manager struct {
	store  SessionStore
	authed AuthAPI
	logger *slog.Logger

	// baseCtx is used for refreshes initiated from Token(), which has no
	// context parameter of its own.
	baseCtx context.Context

	// sf deduplicates refresh calls: a second caller arriving while one is
	// outstanding observes the first one's result instead of issuing a
	// duplicate request.
	sf singleflight.Group

	// restoreOnce guarantees startup restoration runs exactly once per
	// process; concurrent callers block inside Do and share the result.
	restoreOnce stdsync.Once
	restoreErr  error

	mu      stdsync.Mutex
	state   State
	session *sessionfile.Session

	nowFunc func() time.Time // injectable for deterministic tests
}

// NewManager creates a Manager with injected storage and network
// dependencies. baseCtx should outlive the manager (typically
// context.Background()); it backs silent refreshes triggered by Token().
func NewManager(baseCtx context.Context, store SessionStore, authed AuthAPI, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:   store,
		authed:  authed,
		logger:  logger,
		baseCtx: baseCtx,
		state:   Unauthenticated,
		nowFunc: time.Now,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// IsAuthenticated reports whether the manager currently holds a session.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// Owner returns the identity the session belongs to, or "" when
// unauthenticated.
func (m *Manager) Owner() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ""
	}

	return m.session.Owner
}

// Origin returns the server the session was established against, or "".
func (m *Manager) Origin() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ""
	}

	return m.session.Origin
}

// Expiry returns the access token expiry, or the zero time when
// unauthenticated.
func (m *Manager) Expiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.Token == nil {
		return time.Time{}
	}

	return m.session.Token.Expiry
}

// Login authenticates with the authority and persists the resulting session.
// The secret is forwarded to the backend and never stored locally — refresh
// tokens are the only recovery credential kept on an unattended device.
func (m *Manager) Login(ctx context.Context, identity, secret string) error {
	m.setState(Authenticating)

	creds, err := m.authed.Login(ctx, identity, secret)
	if err != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("session: login: %w", err)
	}

	s := &sessionfile.Session{
		Token: &oauth2.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.ExpiresAt,
		},
		Owner:  identity,
		Origin: creds.Origin,
	}

	if err := m.store.Save(s); err != nil {
		m.setState(Unauthenticated)
		return fmt.Errorf("session: persisting login: %w", err)
	}

	m.mu.Lock()
	m.session = s
	m.state = Authenticated
	m.mu.Unlock()

	m.logger.Info("login successful",
		slog.String("owner", identity),
		slog.String("origin", creds.Origin),
		slog.Time("expiry", creds.ExpiresAt),
	)

	return nil
}

// RestoreAtStartup attempts silent session restoration from the store.
// It runs exactly once per process lifetime; concurrent callers await the
// same attempt and observe its result. Callers must not issue protected
// requests before this returns.
//
// Restoration path: unexpired token → validate with the authority;
// rejected or expired → refresh; refresh rejected → store cleared,
// Unauthenticated. A transport failure while the authority is unreachable
// keeps the saved session so a kiosk that boots offline recovers when the
// network returns.
func (m *Manager) RestoreAtStartup(ctx context.Context) error {
	m.restoreOnce.Do(func() {
		m.restoreErr = m.restore(ctx)
	})

	return m.restoreErr
}

// restore implements the one-shot restoration logic.
func (m *Manager) restore(ctx context.Context) error {
	s, err := m.store.Load()
	if err != nil {
		// Corrupt session file: clear it and start unauthenticated rather
		// than wedging an unattended device on every boot.
		m.logger.Warn("session file unreadable, clearing",
			slog.String("error", err.Error()),
		)

		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn("failed to clear corrupt session file",
				slog.String("error", clearErr.Error()),
			)
		}

		m.setState(Unauthenticated)

		return nil
	}

	if s == nil {
		m.logger.Info("no saved session, login required")
		m.setState(Unauthenticated)

		return nil
	}

	if m.nowFunc().Before(s.Token.Expiry) {
		return m.restoreViaValidate(ctx, s)
	}

	m.logger.Info("saved access token expired, refreshing",
		slog.Time("expiry", s.Token.Expiry),
	)

	return m.restoreViaRefresh(ctx, s)
}

// restoreViaValidate confirms an unexpired saved token with the authority.
func (m *Manager) restoreViaValidate(ctx context.Context, s *sessionfile.Session) error {
	valid, err := m.authed.Validate(ctx, s.Token.AccessToken)
	if err != nil {
		// Authority unreachable. Adopt the saved session provisionally: the
		// first protected request to fail with 401 triggers recovery, and
		// stale data beats an empty kiosk.
		m.logger.Warn("validate unreachable, adopting saved session provisionally",
			slog.String("error", err.Error()),
		)

		m.adopt(s)

		return nil
	}

	if valid {
		m.logger.Info("saved session validated",
			slog.String("owner", s.Owner),
			slog.Time("expiry", s.Token.Expiry),
		)

		m.adopt(s)

		return nil
	}

	m.logger.Info("authority rejected saved token, refreshing")

	return m.restoreViaRefresh(ctx, s)
}

// restoreViaRefresh attempts the refresh path during restoration.
func (m *Manager) restoreViaRefresh(ctx context.Context, s *sessionfile.Session) error {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		if errors.Is(err, ErrSessionLost) {
			m.logger.Warn("saved session could not be refreshed, login required")
			return nil
		}

		return fmt.Errorf("session: restore: %w", err)
	}

	return nil
}

// adopt installs a session as current and enters Authenticated.
func (m *Manager) adopt(s *sessionfile.Session) {
	m.mu.Lock()
	m.session = s
	m.state = Authenticated
	m.mu.Unlock()
}

// Refresh rotates both tokens using the saved refresh token. At most one
// refresh request is in flight at a time; concurrent callers share the
// result. A definitive rejection clears the store and returns
// ErrSessionLost. A transport failure keeps the session for a later attempt.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (any, error) {
		return nil, m.doRefresh(ctx)
	})

	return err
}

// doRefresh performs the actual refresh network call. Only ever executed by
// the singleflight leader.
func (m *Manager) doRefresh(ctx context.Context) error {
	m.mu.Lock()

	if m.session == nil || m.session.Token == nil || m.session.Token.RefreshToken == "" {
		m.state = Unauthenticated
		m.mu.Unlock()

		return ErrNotAuthenticated
	}

	prev := m.state
	refreshToken := m.session.Token.RefreshToken
	owner := m.session.Owner
	origin := m.session.Origin
	m.state = Refreshing
	m.mu.Unlock()

	creds, err := m.authed.Refresh(ctx, refreshToken)
	if err != nil {
		if api.IsAuthError(err) || errors.Is(err, api.ErrBadRequest) {
			// The refresh token itself was rejected. There is no fallback to
			// a stored secret; clear everything and surface the loss.
			m.logger.Warn("refresh token rejected, clearing session",
				slog.String("error", err.Error()),
			)

			m.clearLocked()

			return fmt.Errorf("%w: %w", ErrSessionLost, err)
		}

		// Transport failure: the refresh token may still be good. Keep the
		// session and let the next attempt retry.
		m.mu.Lock()
		m.state = prev
		m.mu.Unlock()

		return fmt.Errorf("session: refresh: %w", err)
	}

	s := &sessionfile.Session{
		Token: &oauth2.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.ExpiresAt,
		},
		Owner:  owner,
		Origin: origin,
	}

	if saveErr := m.store.Save(s); saveErr != nil {
		// The rotated tokens are only in memory now. Stay authenticated and
		// log loudly — the next successful save repairs the file.
		m.logger.Error("failed to persist refreshed session",
			slog.String("error", saveErr.Error()),
		)
	}

	m.mu.Lock()
	m.session = s
	m.state = Authenticated
	m.mu.Unlock()

	m.logger.Info("session refreshed",
		slog.String("owner", owner),
		slog.Time("expiry", creds.ExpiresAt),
	)

	return nil
}

// AttemptRecovery is invoked by callers that received an authorization
// failure on a protected request. It makes exactly one refresh attempt
// (shared with any concurrent attempt). On ErrSessionLost the caller must
// surface a non-fatal notice and keep the display running.
func (m *Manager) AttemptRecovery(ctx context.Context) error {
	m.logger.Info("attempting session recovery after authorization failure")

	return m.Refresh(ctx)
}

// Logout notifies the authority (best-effort) and unconditionally clears
// local session state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s != nil && s.Token != nil {
		if err := m.authed.Logout(ctx, s.Owner, s.Token.AccessToken); err != nil {
			m.logger.Warn("remote logout failed, clearing local session anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	m.clearLocked()
	m.logger.Info("logged out")

	return nil
}

// clearLocked wipes the in-memory session, clears the store, and enters
// Unauthenticated. Store failures are logged, not propagated — local state
// must end cleared either way.
func (m *Manager) clearLocked() {
	m.mu.Lock()
	m.session = nil
	m.state = Unauthenticated
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear session store",
			slog.String("error", err.Error()),
		)
	}
}

// Token implements api.TokenSource. It returns the current access token,
// refreshing first when the token is within expirySkew of expiry. Callers
// holding a fresh token may still see a 401 if the authority revoked it;
// they then invoke AttemptRecovery.
func (m *Manager) Token() (string, error) {
	m.mu.Lock()

	if m.session == nil || m.session.Token == nil {
		m.mu.Unlock()
		return "", ErrNotAuthenticated
	}

	tok := m.session.Token
	fresh := tok.Expiry.IsZero() || m.nowFunc().Add(expirySkew).Before(tok.Expiry)

	if fresh {
		access := tok.AccessToken
		m.mu.Unlock()

		return access, nil
	}

	m.mu.Unlock()

	m.logger.Debug("access token near expiry, refreshing before use")

	if err := m.Refresh(m.baseCtx); err != nil {
		return "", fmt.Errorf("session: obtaining token: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.Token == nil {
		return "", ErrNotAuthenticated
	}

	return m.session.Token.AccessToken, nil
}

// setState transitions the lifecycle state under lock.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
