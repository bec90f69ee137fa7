package settings

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"clinicstock/pkg/logger"
)

// Provider supplies the active costing policy.
type Provider interface {
	Get(ctx context.Context) (InventorySettings, error)
}

// Repository persists the policy.
type Repository interface {
	// Load returns the stored policy. found is false when nothing was saved.
	Load(ctx context.Context) (s InventorySettings, found bool, err error)
	Save(ctx context.Context, s InventorySettings) error
}

// Cache is an optional read-through cache in front of Repository.
type Cache interface {
	Get(ctx context.Context) (s InventorySettings, hit bool, err error)
	Set(ctx context.Context, s InventorySettings) error
	Invalidate(ctx context.Context) error
}

// Service is the Provider backed by a repository and an optional cache.
// Cache failures degrade to repository reads; they never fail a request.
// Concurrent misses share one repository load.
type Service struct {
	repo  Repository
	cache Cache
	loads singleflight.Group

	// cacheMu orders cache writes from loads against invalidations.
	// version is bumped by every Update; a load only fills the cache if
	// no Update happened since it started reading.
	cacheMu sync.Mutex
	version uint64
}

// NewService creates a settings service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Get returns the current policy, falling back to Default.
func (s *Service) Get(ctx context.Context) (InventorySettings, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx)
		if err != nil {
			logger.Warn(ctx, "settings cache read failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	v, err, _ := s.loads.Do("settings", func() (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return InventorySettings{}, err
	}
	return v.(InventorySettings), nil
}

func (s *Service) load(ctx context.Context) (InventorySettings, error) {
	s.cacheMu.Lock()
	version := s.version
	s.cacheMu.Unlock()

	stored, found, err := s.repo.Load(ctx)
	if err != nil {
		return InventorySettings{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		stored = Default()
	}

	if s.cache != nil {
		s.cacheMu.Lock()
		defer s.cacheMu.Unlock()
		if s.version != version {
			return stored, nil
		}
		if err := s.cache.Set(ctx, stored); err != nil {
			logger.Warn(ctx, "settings cache write failed", "error", err)
		}
	}
	return stored, nil
}

// Update validates and stores a new policy.
// In-flight operations keep the snapshot they took at entry, but a load
// still running cannot put the old policy back into the cache.
func (s *Service) Update(ctx context.Context, next InventorySettings) (InventorySettings, error) {
	if err := next.Validate(); err != nil {
		return InventorySettings{}, err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return InventorySettings{}, fmt.Errorf("save settings: %w", err)
	}
	if err := s.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "settings cache invalidation failed", "error", err)
	}

	logger.Info(ctx, "inventory settings updated",
		"write_off_method", next.WriteOffMethod,
		"lot_tracking", next.LotTracking,
		"expiry_rule", next.ExpiryRule,
	)
	return next, nil
}

// Invalidate drops the cached policy. Loads already running neither
// serve their result to later callers nor write it to the cache.
func (s *Service) Invalidate(ctx context.Context) error {
	s.loads.Forget("settings")

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.version++
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

// Static is a fixed Provider, settable at runtime. Suitable for tests
// and single-process tools.
type Static struct {
	mu sync.RWMutex
	s  InventorySettings
}

// NewStatic creates a Static provider holding s.
func NewStatic(s InventorySettings) *Static {
	return &Static{s: s}
}

func (p *Static) Get(ctx context.Context) (InventorySettings, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.s, nil
}

// Set replaces the held policy.
func (p *Static) Set(s InventorySettings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s = s
}
