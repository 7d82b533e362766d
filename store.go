package authclient

import (
	"context"
	"net/url"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// SessionStore is the process-wide session state machine. Construct it once
// at application start and inject it wherever the session is needed; there is
// no package-level instance.
type SessionStore struct {
	mu       sync.RWMutex
	token    string
	user     *User
	loading  bool
	lastErr  string
	lastSync time.Time

	gateway     Gateway
	persistence *TokenPersistence
	broadcaster *Broadcaster
	navigator   Navigator
	logger      Logger
	cfg         Config

	syncInterval     time.Duration
	credentialRecall bool

	syncMu     sync.Mutex
	syncCancel context.CancelFunc

	unsubscribe func()
}

// SessionOption customizes SessionStore construction.
type SessionOption func(*SessionStore)

// WithBroadcaster wires cross-process login/logout signaling.
func WithBroadcaster(b *Broadcaster) SessionOption {
	return func(s *SessionStore) { s.broadcaster = b }
}

// WithNavigator wires the host's navigation hooks.
func WithNavigator(n Navigator) SessionOption {
	return func(s *SessionStore) {
		if n != nil {
			s.navigator = n
		}
	}
}

func WithLogger(logger Logger) SessionOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSyncInterval overrides the reconciliation interval, useful in tests.
func WithSyncInterval(d time.Duration) SessionOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithCredentialRecall opts into persisting the login password for form
// prefill. This stores a plaintext password in the durable tier; it exists
// for parity with deployments that rely on it and is off by default. Prefer
// the saved-email prefill alone.
func WithCredentialRecall(enabled bool) SessionOption {
	return func(s *SessionStore) { s.credentialRecall = enabled }
}

// NewSessionStore builds the store, hydrates it from the persisted tiers and,
// when the hydrated session is complete, starts the reconciliation loop.
func NewSessionStore(gateway Gateway, persistence *TokenPersistence, cfg Config, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		gateway:      gateway,
		persistence:  persistence,
		cfg:          cfg,
		navigator:    noopNavigator{},
		logger:       defLogger{},
		syncInterval: cfg.GetSyncInterval(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.hydrate()

	if s.broadcaster != nil {
		unsubscribe, err := s.broadcaster.Subscribe(s.handleBroadcast)
		if err != nil {
			s.logger.Error("broadcast subscribe failed", "error", err)
		} else {
			s.unsubscribe = unsubscribe
		}
	}

	if s.IsAuthenticated() {
		s.StartTokenSync()
	}

	return s
}

// hydrate pulls the token and cached user from the persisted tiers.
func (s *SessionStore) hydrate() {
	token := s.persistence.ReadToken()
	if token == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if user, ok := s.persistence.ReadUserCache(); ok {
		s.user = user
	}
}

// Login exchanges credentials for a token and a resolved user. On success the
// token is written through every tier, the profile is cached, the login is
// broadcast and the reconciliation loop starts. On failure the error message
// is recorded on the session and returned; it never panics past this boundary.
func (s *SessionStore) Login(ctx context.Context, creds Credentials, rememberMe bool) (*User, error) {
	s.setLoading(true)
	defer s.setLoading(false)
	s.setError("")

	if err := creds.Validate(); err != nil {
		wrapped := goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
			WithTextCode(TextCodeInvalidPayload)
		s.setError(wrapped.Message)
		return nil, wrapped
	}

	result := s.gateway.Login(ctx, creds)
	if !result.Success {
		s.setError(result.Message)
		return nil, goerrors.New(result.Message, goerrors.CategoryAuth).
			WithTextCode(TextCodeLoginFailed).
			WithCode(goerrors.CodeUnauthorized)
	}

	user := buildUser(result.User, creds.Email, result.Roles)

	s.mu.Lock()
	s.token = result.Token
	s.user = user
	s.lastSync = time.Now()
	s.mu.Unlock()

	s.persistence.WriteToken(result.Token, rememberMe)
	s.persistence.WriteUserCache(user, rememberMe)
	if rememberMe {
		password := ""
		if s.credentialRecall {
			password = creds.Password
		}
		s.persistence.SaveCredentials(creds.Email, password)
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(BroadcastActionLogin, user)
	}

	s.StartTokenSync()

	return user.Clone(), nil
}

// Logout tears the session down: state, every persisted token location and
// the reconciliation loop. Idempotent. The remember-me preference and saved
// email survive on purpose.
func (s *SessionStore) Logout() {
	s.clearLocalSession()

	s.persistence.ClearToken()
	s.persistence.ClearUserCache()

	if s.broadcaster != nil {
		s.broadcaster.Publish(BroadcastActionLogout, nil)
	}

	s.StopTokenSync()
}

// CheckAuth verifies the current token against the backend. Success replaces
// the user with the fresh profile; any failure logs the session out. This is
// the sole path by which a stale token gets discovered and purged.
func (s *SessionStore) CheckAuth(ctx context.Context) bool {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return false
	}

	s.setLoading(true)
	defer s.setLoading(false)

	result := s.gateway.VerifyToken(ctx, token)

	// A logout or account switch while the call was in flight must not be
	// undone by the stale result: the token captured at call start has to
	// still be current before anything is applied.
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return false
	}

	if !result.Success || result.User == nil {
		s.mu.Unlock()
		s.Logout()
		return false
	}

	s.user = mergeVerifiedUser(s.user, result.User)
	s.lastSync = time.Now()
	user := s.user
	s.mu.Unlock()

	s.persistence.WriteUserCache(user, s.persistence.RememberMeEnabled())
	return true
}

// HasPermission checks a single permission against the current user.
func (s *SessionStore) HasPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.HasPermission(permission)
}

// HasAnyPermission is true when the user holds at least one of the given
// permissions.
func (s *SessionStore) HasAnyPermission(permissions []string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range permissions {
		if s.user.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true when the user holds every given permission.
func (s *SessionStore) HasAllPermissions(permissions []string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range permissions {
		if !s.user.HasPermission(p) {
			return false
		}
	}
	return true
}

// CanAccess grants access when the current role's rank meets the required
// role's rank: Student(1) < Teacher(2) < HeadOfDepartment(3) < Admin(4).
// This is minimum-clearance semantics; exact-role page guards use RequireRole.
func (s *SessionStore) CanAccess(requiredRole Role) bool {
	return s.UserRole().IsAtLeast(requiredRole)
}

// UpdateUserProfile shallow-merges the given fields into the user profile and
// re-persists the cache in whichever tier is authoritative. A "phone" field
// is validated before it is accepted.
func (s *SessionStore) UpdateUserProfile(fields map[string]any) error {
	if phone, ok := fields["phone"].(string); ok && phone != "" {
		if _, err := phonenumbers.Parse(phone, ""); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
				WithTextCode(TextCodeInvalidPayload)
		}
	}

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if s.user.Profile == nil {
		s.user.Profile = map[string]any{}
	}
	for k, v := range fields {
		s.user.Profile[k] = v
	}
	user := s.user
	s.mu.Unlock()

	s.persistence.WriteUserCache(user, s.persistence.RememberMeEnabled())
	return nil
}

// Snapshot returns a point-in-time copy of the session state.
func (s *SessionStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Token:     s.token,
		User:      s.user.Clone(),
		IsLoading: s.loading,
		LastError: s.lastErr,
		LastSync:  s.lastSync,
	}
}

// Token implements TokenSource for the request-signing transport.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the signed-in user, nil when signed out.
func (s *SessionStore) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// UserRole returns the current role, RoleStudent when signed out.
func (s *SessionStore) UserRole() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || s.user.Role == "" {
		return RoleStudent
	}
	return s.user.Role
}

func (s *SessionStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the most recent failure message, "" when none.
func (s *SessionStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *SessionStore) RememberMeEnabled() bool {
	return s.persistence.RememberMeEnabled()
}

func (s *SessionStore) SavedEmail() string {
	return s.persistence.SavedEmail()
}

func (s *SessionStore) SavedPassword() string {
	return s.persistence.SavedPassword()
}

func (s *SessionStore) ClearRememberMePreference() {
	s.persistence.ClearRememberPreference()
}

// LibraryURL builds the cross-subdomain library handoff URL with the current
// token attached.
func (s *SessionStore) LibraryURL() (string, error) {
	base := s.cfg.GetLibraryURL()
	if base == "" {
		return "", goerrors.New("no library URL configured", goerrors.CategoryBadInput)
	}

	token := s.Token()
	if token == "" {
		return "", ErrNotAuthenticated
	}

	return base + "?token=" + url.QueryEscape(token), nil
}

// Close detaches the store from the broadcaster and stops the loop. The
// session itself is left intact.
func (s *SessionStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.StopTokenSync()
}

// handleBroadcast converges this process onto an event from a sibling.
func (s *SessionStore) handleBroadcast(msg BroadcastMessage) {
	switch msg.Action {
	case BroadcastActionLogout:
		// Local teardown only; re-broadcasting would ping-pong forever.
		s.clearLocalSession()
		s.StopTokenSync()
		s.navigator.RedirectToLogin()

	case BroadcastActionLogin:
		if msg.UserData == nil {
			return
		}
		s.mu.Lock()
		s.user = msg.UserData
		s.mu.Unlock()

		token := s.persistence.ReadToken()
		s.mu.Lock()
		s.token = token
		s.lastSync = time.Now()
		s.mu.Unlock()

		s.StartTokenSync()
		// A full reload is the simplest correct way to rehydrate dependent
		// state without a finer-grained invalidation protocol.
		s.navigator.Reload()

	default:
		s.logger.Debug("ignoring unknown broadcast action", "action", msg.Action)
	}
}

// clearLocalSession wipes in-memory state without touching persistence or
// publishing anything.
func (s *SessionStore) clearLocalSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.lastErr = ""
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

func (s *SessionStore) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}
