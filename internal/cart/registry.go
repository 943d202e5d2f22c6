package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// DefaultNamespace prefixes every storage key.
const DefaultNamespace = "cart-storage"

// StorageKey is the durable key for a session's cart.
func StorageKey(namespace, sessionID string) string {
	return namespace + ":" + sessionID
}

// RegistryParams configures the engines the registry builds.
type RegistryParams struct {
	Namespace string
	Storage   Storage
	Discounts DiscountValidator
	Tax       TaxSettingsSource
	Logger    *logger.Logger
	Metrics   MetricsRecorder
	Currency  enums.Currency

	PersistTimeout  time.Duration
	DiscountTimeout time.Duration
	TaxTimeout      time.Duration

	Now func() time.Time
}

type session struct {
	engine   *Engine
	lastUsed time.Time
}

// Registry holds one hydrated engine per shopper session.
type Registry struct {
	params RegistryParams
	logg   *logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	group    singleflight.Group
}

// NewRegistry validates params and returns an empty registry.
func NewRegistry(p RegistryParams) (*Registry, error) {
	if p.Storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	if p.Discounts == nil {
		return nil, fmt.Errorf("discount validator required")
	}
	if p.Tax == nil {
		return nil, fmt.Errorf("tax settings source required")
	}
	if strings.TrimSpace(p.Namespace) == "" {
		p.Namespace = DefaultNamespace
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Metrics == nil {
		p.Metrics = nopMetrics{}
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Registry{
		params:   p,
		logg:     p.Logger,
		now:      p.Now,
		sessions: make(map[string]*session),
	}, nil
}

// Get returns the session's engine, building and hydrating it on first use.
// Concurrent first calls for one session share a single hydration. When
// storage cannot be read the engine is not kept, so a later call retries the
// restore instead of saving an empty cart over the stored one. Tax settings
// load in the background once the engine is cached.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Engine, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session id is required")
	}

	if engine := r.lookup(sessionID); engine != nil {
		return engine, nil
	}

	v, err, _ := r.group.Do(sessionID, func() (any, error) {
		if engine := r.lookup(sessionID); engine != nil {
			return engine, nil
		}

		engine, err := New(Params{
			Key:             StorageKey(r.params.Namespace, sessionID),
			Storage:         r.params.Storage,
			Discounts:       r.params.Discounts,
			Tax:             r.params.Tax,
			Logger:          r.params.Logger,
			Metrics:         r.params.Metrics,
			Currency:        r.params.Currency,
			PersistTimeout:  r.params.PersistTimeout,
			DiscountTimeout: r.params.DiscountTimeout,
			TaxTimeout:      r.params.TaxTimeout,
			Now:             r.params.Now,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart engine")
		}
		hydrateCtx := context.WithoutCancel(ctx)
		if err := engine.restore(hydrateCtx); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart storage unavailable")
		}

		r.mu.Lock()
		r.sessions[sessionID] = &session{engine: engine, lastUsed: r.now()}
		count := len(r.sessions)
		r.mu.Unlock()
		r.params.Metrics.SetActiveSessions(count)

		go engine.loadTaxOnce(hydrateCtx)
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

func (r *Registry) lookup(sessionID string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	s.lastUsed = r.now()
	return s.engine
}

// Sweep drops engines idle for longer than idle. Their state is already
// persisted, so the next Get rehydrates from storage.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()

	r.params.Metrics.SetActiveSessions(count)
	if removed > 0 {
		r.logg.Debug(r.logg.WithFields(context.Background(), map[string]any{
			"removed":   removed,
			"remaining": count,
		}), "idle cart sessions swept")
	}
	return removed
}

// Len reports the number of live engines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
