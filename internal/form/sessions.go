package form

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"assetadmin/internal/logging"
)

var ErrSessionNotFound = errors.New("form session not found")

// DefaultSessionTTL: сколько живёт форма без обращений
const DefaultSessionTTL = 30 * time.Minute

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Sessions: реестр контроллеров форм по id сессии
type Sessions struct {
	mu      sync.Mutex
	items   map[string]*session
	deps    Deps
	ttl     time.Duration
	entropy io.Reader
	now     func() time.Time
	log     *zap.Logger
}

func NewSessions(deps Deps, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Sessions{
		items:   map[string]*session{},
		deps:    deps,
		ttl:     ttl,
		entropy: ulid.Monotonic(src, 0),
		now:     time.Now,
		log:     logging.OrNop(deps.Log),
	}
}

// Open создаёт сессию и запускает в ней форму. Если загрузка упала, сессия не сохраняется.
func (s *Sessions) Open(ctx context.Context, opts StartOptions) (string, State, error) {
	ctrl := NewController(s.deps)
	st, err := ctrl.Start(ctx, opts)
	if err != nil {
		return "", st, err
	}

	s.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
	s.items[id] = &session{ctrl: ctrl, lastSeen: s.now()}
	s.mu.Unlock()

	s.log.Debug("form session opened", zap.String("session_id", id), zap.String("module_id", st.ModuleID))
	return id, st, nil
}

// Get возвращает контроллер и продлевает жизнь сессии
func (s *Sessions) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().Sub(it.lastSeen) > s.ttl {
		delete(s.items, id)
		return nil, ErrSessionNotFound
	}
	it.lastSeen = s.now()
	return it.ctrl, nil
}

func (s *Sessions) Close(id string) error {
	s.mu.Lock()
	it, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	it.ctrl.Close()
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep удаляет просроченные сессии и возвращает их число
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	var expired []*session
	now := s.now()
	for id, it := range s.items {
		if now.Sub(it.lastSeen) > s.ttl {
			expired = append(expired, it)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, it := range expired {
		it.ctrl.Close()
	}
	if len(expired) > 0 {
		s.log.Info("expired form sessions evicted", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run периодически чистит реестр до отмены ctx
func (s *Sessions) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
