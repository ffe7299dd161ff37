package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"walletlog/internal/log"
)

// ErrNoSession is returned when a request context carries no session.
var ErrNoSession = errors.New("no session in context")

// Options configures the session cookie and the authentication policy.
type Options struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration

	// CheckExpiry makes JWT tokens whose exp claim has passed count as
	// absent. Opaque tokens are always taken at face value.
	CheckExpiry bool

	Now func() time.Time
}

// DefaultOptions returns the cookie settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		CookieName: "walletlog_sid",
		MaxAge:     30 * 24 * time.Hour,
		Now:        time.Now,
	}
}

// Manager issues session cookies and answers "is there a session token"
// for the router and the API request pipeline.
type Manager struct {
	storage Storage
	opts    Options
}

func NewManager(storage Storage, opts Options) *Manager {
	def := DefaultOptions()
	if opts.CookieName == "" {
		opts.CookieName = def.CookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = def.MaxAge
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Manager{storage: storage, opts: opts}
}

// Middleware attaches the caller's session to the request context, issuing
// a fresh session cookie when the request carries none or an invalid one.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(m.opts.CookieName); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, m.cookie(id))
			log.FromContext(r.Context()).DebugContext(r.Context(), "Issued session cookie",
				log.FieldSessionID, id)
		}

		ctx := NewContext(r.Context(), New(id, m.storage))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Token implements the API pipeline's token source. Storage failures are
// logged and treated as "no token".
func (m *Manager) Token(ctx context.Context) (string, bool) {
	s := FromContext(ctx)
	if s == nil {
		return "", false
	}
	tok, ok, err := s.Token(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Session token read failed",
			log.FieldSessionID, s.ID(), log.FieldError, err)
		return "", false
	}
	return tok, ok
}

// Authenticated reports whether ctx carries a session token. Presence is
// the whole test unless CheckExpiry is set.
func (m *Manager) Authenticated(ctx context.Context) bool {
	tok, ok := m.Token(ctx)
	if !ok {
		return false
	}
	if !m.opts.CheckExpiry {
		return true
	}
	claims, err := ParseClaims(tok)
	if err != nil {
		return true
	}
	return !claims.Expired(m.opts.Now())
}

// HasSession is the router's session probe.
func (m *Manager) HasSession(r *http.Request) bool {
	return m.Authenticated(r.Context())
}

// Login stores token in the caller's session.
func (m *Manager) Login(ctx context.Context, token string) error {
	s := FromContext(ctx)
	if s == nil {
		return ErrNoSession
	}
	return s.SetToken(ctx, token)
}

// Logout removes the caller's token.
func (m *Manager) Logout(ctx context.Context) error {
	s := FromContext(ctx)
	if s == nil {
		return ErrNoSession
	}
	return s.ClearToken(ctx)
}
