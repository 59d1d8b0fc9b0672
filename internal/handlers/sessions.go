package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/alextreichler/shopfront/internal/checkout"
	"github.com/alextreichler/shopfront/internal/gateway"
	"github.com/alextreichler/shopfront/internal/session"
	"github.com/alextreichler/shopfront/internal/state"
	"github.com/alextreichler/shopfront/internal/storefront"
)

const (
	cookieName = "shop-session"
	sidKey     = "sid"
)

// Session is the server-side half of one browser session: a backend client
// with its own cookie jar, the slices it feeds and the checkout attempt.
type Session struct {
	ID       string
	Client   *gateway.Client
	Store    *storefront.Store
	Token    *session.Token
	Checkout *checkout.Orchestrator

	lastSeen time.Time
}

type RegistryConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	ShopName       string
	Policy         state.Policy
	// IdleTimeout evicts sessions not seen for this long.
	IdleTimeout time.Duration
}

// Registry maps the sid in the session cookie to a live Session.
type Registry struct {
	cookies *sessions.CookieStore
	values  session.Store
	journal checkout.Journal
	cfg     RegistryConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds a registry. values holds the correlation tokens and
// journal, if not nil, receives every checkout transition.
func NewRegistry(cookies *sessions.CookieStore, values session.Store, journal checkout.Journal, cfg RegistryConfig) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 24 * time.Hour
	}
	return &Registry{
		cookies:  cookies,
		values:   values,
		journal:  journal,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Cookie returns the gorilla session backing r, for flashes.
func (reg *Registry) Cookie(r *http.Request) *sessions.Session {
	cs, err := reg.cookies.Get(r, cookieName)
	if err != nil {
		slog.Debug("Discarding undecodable session cookie", "error", err)
	}
	return cs
}

// Resolve returns the Session for r, issuing a new sid cookie when the
// request carries none.
func (reg *Registry) Resolve(w http.ResponseWriter, r *http.Request) (*Session, *sessions.Session) {
	cs := reg.Cookie(r)
	sid, _ := cs.Values[sidKey].(string)
	if sid == "" {
		sid = uuid.NewString()
		cs.Values[sidKey] = sid
		if err := cs.Save(r, w); err != nil {
			slog.Error("Failed to save session", "error", err)
		}
	}
	return reg.get(sid), cs
}

// Lookup returns the Session for r without creating one.
func (reg *Registry) Lookup(r *http.Request) (*Session, bool) {
	cs, err := reg.cookies.Get(r, cookieName)
	if err != nil {
		return nil, false
	}
	sid, _ := cs.Values[sidKey].(string)
	if sid == "" {
		return nil, false
	}
	return reg.get(sid), true
}

// get returns the live session for sid, rebuilding it after an eviction or
// a restart. The correlation token survives both since it lives in values.
func (reg *Registry) get(sid string) *Session {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if s, ok := reg.sessions[sid]; ok {
		s.lastSeen = reg.now()
		return s
	}
	s := reg.build(sid)
	reg.sessions[sid] = s
	return s
}

func (reg *Registry) build(sid string) *Session {
	client := gateway.New(reg.cfg.APIBaseURL, gateway.WithTimeout(reg.cfg.RequestTimeout))
	token := session.NewToken(reg.values, sid)
	logger := slog.Default().With("session", sid)
	st := storefront.New(client, token, state.WithPolicy(reg.cfg.Policy), state.WithLogger(logger))

	opts := []checkout.Option{checkout.WithLogger(logger)}
	if reg.journal != nil {
		opts = append(opts, checkout.WithJournal(reg.journal))
	}
	if reg.cfg.ShopName != "" {
		opts = append(opts, checkout.WithShopName(reg.cfg.ShopName))
	}

	slog.Debug("Session created", "session", sid)
	return &Session{
		ID:       sid,
		Client:   client,
		Store:    st,
		Token:    token,
		Checkout: checkout.New(st.Orders, token, opts...),
		lastSeen: reg.now(),
	}
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

// Sweep evicts sessions idle since before now minus the idle timeout and
// returns how many were dropped.
func (reg *Registry) Sweep(now time.Time) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	n := 0
	for sid, s := range reg.sessions {
		if now.Sub(s.lastSeen) > reg.cfg.IdleTimeout {
			delete(reg.sessions, sid)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done.
func (reg *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := reg.Sweep(now); n > 0 {
				slog.Info("Evicted idle sessions", "count", n)
			}
		}
	}
}
