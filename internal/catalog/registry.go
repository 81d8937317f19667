package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/telemetry"
)

// PrepareFunc post-processes a freshly loaded snapshot before it is
// published, typically to attach embeddings.
type PrepareFunc func(ctx context.Context, s *Snapshot) (*Snapshot, error)

// Status describes the active snapshot.
type Status struct {
	Source     string    `json:"source"`
	Version    string    `json:"version"`
	EmbeddedBy string    `json:"embedded_by,omitempty"`
	Skills     int       `json:"skills"`
	Roles      int       `json:"roles"`
	LoadedAt   time.Time `json:"loaded_at"`
	LastError  string    `json:"last_error,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Registry publishes the current catalog snapshot. Readers never block;
// refreshes are serialised and swap the snapshot atomically, so a request
// keeps the snapshot it started with.
type Registry struct {
	store   Store
	prepare PrepareFunc

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	lastErr atomic.Value
}

var emptySnapshot, _ = NewSnapshot(Document{Version: "empty"})

// NewRegistry creates a registry over store. prepare may be nil.
func NewRegistry(store Store, prepare PrepareFunc) *Registry {
	return &Registry{store: store, prepare: prepare}
}

// Current returns the active snapshot, or an empty one before the first load.
func (r *Registry) Current() *Snapshot {
	if s := r.current.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// Refresh reloads the catalog. On failure the previous snapshot stays active.
func (r *Registry) Refresh(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		r.lastErr.Store(err.Error())
		metrics.ObserveCatalogRefresh(0, 0, err)
		telemetry.Error("catalog.refresh_failed", map[string]any{
			"source": r.store.Name(),
			"error":  err.Error(),
		})
		return nil, err
	}
	r.current.Store(snap)
	r.lastErr.Store("")
	metrics.ObserveCatalogRefresh(len(snap.Skills), len(snap.Roles), nil)
	telemetry.Info("catalog.refreshed", map[string]any{
		"source":      r.store.Name(),
		"version":     snap.Version,
		"skills":      len(snap.Skills),
		"roles":       len(snap.Roles),
		"embedded_by": snap.EmbeddedBy,
		"warnings":    len(snap.Warnings),
	})
	return snap, nil
}

func (r *Registry) load(ctx context.Context) (*Snapshot, error) {
	if r.store == nil {
		return nil, errors.New("catalog store not configured")
	}
	snap, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("catalog store returned no snapshot")
	}
	if r.prepare != nil {
		snap, err = r.prepare(ctx, snap)
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Status reports the active snapshot and the last refresh error.
func (r *Registry) Status() Status {
	s := r.Current()
	st := Status{
		Version:    s.Version,
		EmbeddedBy: s.EmbeddedBy,
		Skills:     len(s.Skills),
		Roles:      len(s.Roles),
		Warnings:   s.Warnings,
	}
	if r.store != nil {
		st.Source = r.store.Name()
	}
	if r.current.Load() != nil {
		st.LoadedAt = s.LoadedAt
	}
	if v, ok := r.lastErr.Load().(string); ok {
		st.LastError = v
	}
	return st
}
