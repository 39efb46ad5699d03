package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/platform/metrics"
)

// Mount is one page load. Its context is cancelled when the page goes away so
// pending work bound to it stops mutating state.
type Mount struct {
	ID       string
	DeviceID string
	Gate     *Gate

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
	session  *sessionSnapshot
}

type sessionSnapshot struct {
	wallet     string
	authorized bool
}

// Context is cancelled on release.
func (m *Mount) Context() context.Context {
	return m.ctx
}

// Alive reports whether the mount has not been released.
func (m *Mount) Alive() bool {
	return m.ctx.Err() == nil
}

// AuthorizedWallet returns the wallet of the last authorized evaluation.
func (m *Mount) AuthorizedWallet() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.authorized {
		return "", false
	}
	return m.session.wallet, true
}

func (m *Mount) remember(wallet string, authorized bool) {
	m.mu.Lock()
	m.session = &sessionSnapshot{wallet: wallet, authorized: authorized}
	m.mu.Unlock()
}

func (m *Mount) touch(now time.Time) {
	m.mu.Lock()
	m.lastSeen = now
	m.mu.Unlock()
}

func (m *Mount) idleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}

// ReleaseHook is called after a mount is released.
type ReleaseHook func(mountID string)

// MountRegistry owns live mounts.
type MountRegistry struct {
	protectedRoute string
	publicRoute    string
	idleTimeout    time.Duration
	metrics        *metrics.Metrics
	log            zerolog.Logger
	now            func() time.Time

	mu     sync.RWMutex
	mounts map[string]*Mount
	hooks  []ReleaseHook
}

func NewMountRegistry(protectedRoute, publicRoute string, idleTimeout time.Duration, m *metrics.Metrics) *MountRegistry {
	return &MountRegistry{
		protectedRoute: protectedRoute,
		publicRoute:    publicRoute,
		idleTimeout:    idleTimeout,
		metrics:        m,
		log:            logger.Component("mounts"),
		now:            time.Now,
		mounts:         make(map[string]*Mount),
	}
}

// OnRelease registers a hook. Call during wiring.
func (r *MountRegistry) OnRelease(h ReleaseHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Open registers a fresh mount with an armed gate.
func (r *MountRegistry) Open(deviceID string) *Mount {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mount{
		ID:       uuid.New().String(),
		DeviceID: deviceID,
		Gate:     NewGate(r.protectedRoute, r.publicRoute),
		ctx:      ctx,
		cancel:   cancel,
		lastSeen: r.now(),
	}

	r.mu.Lock()
	r.mounts[m.ID] = m
	count := len(r.mounts)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveMounts.Set(float64(count))
	}
	r.log.Debug().Str("mount_id", m.ID).Str("device_id", deviceID).Msg("Mount opened")
	return m
}

// Get returns a live mount and marks it as seen.
func (r *MountRegistry) Get(id string) (*Mount, error) {
	r.mu.RLock()
	m, ok := r.mounts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewMountNotFoundError(id)
	}
	m.touch(r.now())
	return m, nil
}

// Release cancels the mount and runs hooks. Unknown ids are not an error.
func (r *MountRegistry) Release(id string) {
	r.mu.Lock()
	m, ok := r.mounts[id]
	if ok {
		delete(r.mounts, id)
	}
	count := len(r.mounts)
	hooks := append([]ReleaseHook(nil), r.hooks...)
	r.mu.Unlock()

	if !ok {
		return
	}

	m.cancel()
	for _, h := range hooks {
		h(id)
	}
	if r.metrics != nil {
		r.metrics.ActiveMounts.Set(float64(count))
	}
	r.log.Debug().Str("mount_id", id).Msg("Mount released")
}

// Sweep releases mounts idle longer than the timeout and returns how many.
func (r *MountRegistry) Sweep() int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.RLock()
	var expired []string
	for id, m := range r.mounts {
		if m.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.Release(id)
	}
	return len(expired)
}

// Run sweeps idle mounts until ctx is done, then releases everything.
func (r *MountRegistry) Run(ctx context.Context) {
	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.releaseAll()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info().Int("released", n).Msg("Released idle mounts")
			}
		}
	}
}

func (r *MountRegistry) releaseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.mounts))
	for id := range r.mounts {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Release(id)
	}
}
