// Package session ties the per-launch components together. A Session owns
// a credential store scoped to its id and the pipeline, API client and
// view store built on top of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/ggame-miniapp/internal/credential"
	"github.com/iliyamo/ggame-miniapp/internal/gameapi"
	"github.com/iliyamo/ggame-miniapp/internal/identity"
	"github.com/iliyamo/ggame-miniapp/internal/pipeline"
	"github.com/iliyamo/ggame-miniapp/internal/utils"
	"github.com/iliyamo/ggame-miniapp/internal/viewstate"
)

var (
	// ErrNotFound is returned for an unknown or logged-out session.
	ErrNotFound = errors.New("session: not found")
	// ErrEmptyCredential is returned when adopting a blank credential.
	ErrEmptyCredential = errors.New("session: empty credential")
)

// Session is the context object of one launch.
type Session struct {
	ID        string
	Identity  identity.UserIdentity
	Store     credential.Store
	Pipeline  *pipeline.Pipeline
	API       *gameapi.Client
	View      *viewstate.Store
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// AdoptCredential replaces the stored credential with one issued by the
// backend. Later requests carry the new value.
func (s *Session) AdoptCredential(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyCredential
	}
	return s.Store.Set(ctx, credential.KeyAccessCredential, value)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Config holds what the Manager needs to build sessions.
type Config struct {
	APIBaseURL string
	AuthScheme string
	Secret     string
	TTLMin     int
}

// Manager creates and tracks sessions.
type Manager struct {
	factory  credential.Factory
	resolver *identity.Resolver
	cfg      Config
	log      *zap.Logger
	notifier viewstate.Notifier
	http     pipeline.Doer
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger handed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithNotifier sets the mutation event sink of every view store.
func WithNotifier(n viewstate.Notifier) Option { return func(m *Manager) { m.notifier = n } }

// WithHTTPClient sets the client every pipeline sends through.
func WithHTTPClient(d pipeline.Doer) Option { return func(m *Manager) { m.http = d } }

// NewManager returns a Manager that opens stores with factory and
// resolves identities with resolver.
func NewManager(factory credential.Factory, resolver *identity.Resolver, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		resolver: resolver,
		cfg:      cfg,
		log:      zap.NewNop(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Launch starts a session for env. The identity is resolved and stored
// before any component that can reach the backend exists.
func (m *Manager) Launch(ctx context.Context, env identity.Environment) (*Session, utils.SessionToken, error) {
	id := uuid.NewString()
	store, err := m.factory(id)
	if err != nil {
		return nil, utils.SessionToken{}, fmt.Errorf("open credential store: %w", err)
	}

	res, err := m.resolver.Apply(ctx, env, store)
	if err != nil {
		m.release(id, store)
		return nil, utils.SessionToken{}, fmt.Errorf("resolve identity: %w", err)
	}

	s := m.build(id, res.Identity, store)
	tok, err := utils.NewSessionToken(m.cfg.Secret, id, res.Identity.RawID, string(res.Identity.Source), m.cfg.TTLMin)
	if err != nil {
		m.release(id, store)
		return nil, utils.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info("session launched",
		zap.String("session_id", id),
		zap.String("source", string(res.Identity.Source)),
		zap.String("user_id", res.Identity.RawID))
	return s, tok, nil
}

// Get returns a live session. A session unknown to this process is
// rebuilt from its credential store when the store still holds an
// identity, so durable backends survive a restart. The store keeps only
// the raw id, so a session rebuilt by Get has no identity source; use
// Resume to supply the one recorded in the session token.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.Resume(ctx, id, "")
}

// Resume is Get with the identity source to use if the session has to be
// rebuilt.
func (m *Manager) Resume(ctx context.Context, id string, src identity.Source) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
		return s, nil
	}

	store, err := m.factory(id)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	raw, ok, err := store.Get(ctx, credential.KeyUserIdentity)
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	if !ok || raw == "" {
		m.release(id, store)
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s = m.build(id, identity.UserIdentity{RawID: raw, Source: src}, store)
	m.sessions[id] = s
	m.log.Info("session restored",
		zap.String("session_id", id),
		zap.String("source", string(src)),
		zap.String("user_id", raw))
	return s, nil
}

// Logout deletes both stored keys, releases the scope and forgets the
// session.
func (m *Manager) Logout(ctx context.Context, id string) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := credential.Clear(ctx, s.Store); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	m.release(id, s.Store)
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.log.Info("session logged out", zap.String("session_id", id))
	return nil
}

// Sweep forgets in-memory sessions idle since before cutoff. A dropped
// session whose token is still valid keeps its stored credentials so
// Resume can rebuild it; once the token has expired no restore can
// succeed, so its credentials are cleared and its scope released. It
// returns the number of sessions dropped.
func (m *Manager) Sweep(ctx context.Context, cutoff time.Time) int {
	now := m.now()
	var expired []*Session
	m.mu.Lock()
	n := 0
	for id, s := range m.sessions {
		if !s.idleSince().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		n++
		if m.tokenExpired(s, now) {
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if err := credential.Clear(ctx, s.Store); err != nil {
			m.log.Warn("clear expired credentials", zap.String("session_id", s.ID), zap.Error(err))
		}
		m.release(s.ID, s.Store)
	}
	return n
}

// tokenExpired reports whether every token issued for s has expired. A
// non-positive TTL never expires.
func (m *Manager) tokenExpired(s *Session, now time.Time) bool {
	if m.cfg.TTLMin <= 0 {
		return false
	}
	return now.After(s.CreatedAt.Add(time.Duration(m.cfg.TTLMin) * time.Minute))
}

func (m *Manager) release(id string, store credential.Store) {
	if err := credential.Release(store); err != nil {
		m.log.Warn("release credential scope", zap.String("session_id", id), zap.Error(err))
	}
}

// Len is the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) build(id string, ident identity.UserIdentity, store credential.Store) *Session {
	log := m.log.With(zap.String("session_id", id))
	popts := []pipeline.Option{pipeline.WithAuthScheme(m.cfg.AuthScheme), pipeline.WithLogger(log)}
	if m.http != nil {
		popts = append(popts, pipeline.WithHTTPClient(m.http))
	}
	p := pipeline.New(m.cfg.APIBaseURL, store, popts...)
	api := gameapi.New(p)

	vopts := []viewstate.Option{viewstate.WithLogger(log), viewstate.WithSession(id, ident.RawID)}
	if m.notifier != nil {
		vopts = append(vopts, viewstate.WithNotifier(m.notifier))
	}

	now := m.now()
	return &Session{
		ID:        id,
		Identity:  ident,
		Store:     store,
		Pipeline:  p,
		API:       api,
		View:      viewstate.New(api, vopts...),
		CreatedAt: now,
		lastSeen:  now,
	}
}
