// Package registry tracks trained profit models and the one currently serving
// predictions.
//
// A Registry is an explicit instance owned by the process that needs it. The
// active artifact lives behind an atomic pointer: readers take one snapshot
// per request and never observe a regressor paired with another version's
// scaler.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/logger"
	"github.com/kilianp07/fleetintel/core/regression"
)

var (
	// ErrNotLoaded is the panic value of MustActive on an empty registry.
	ErrNotLoaded = errors.New("no model loaded")
	// ErrVersionNotFound is returned by stores for unknown versions.
	ErrVersionNotFound = errors.New("model version not found")
)

// Option configures a Registry.
type Option func(*Registry)

// WithActivationHook registers fn to run after every successful swap.
func WithActivationHook(fn func(Metadata)) Option {
	return func(r *Registry) { r.onActivate = fn }
}

// WithClock overrides time.Now for CreatedAt stamping.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

type Registry struct {
	store      Store
	log        logger.Logger
	active     atomic.Pointer[Artifact]
	onActivate func(Metadata)
	now        func() time.Time
}

// New returns an empty registry over store.
func New(store Store, log logger.Logger, opts ...Option) *Registry {
	r := &Registry{store: store, log: logger.OrNop(log), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// LoadLatest activates the highest complete version found in the store. On
// any failure it logs, keeps the current state and returns false.
func (r *Registry) LoadLatest(ctx context.Context) bool {
	labels, err := r.store.Versions(ctx)
	if err != nil {
		r.log.Errorf("registry: list versions: %v", err)
		return false
	}
	var latest string
	for _, v := range SortVersions(labels) {
		if r.store.Complete(ctx, v) {
			latest = v
			break
		}
		r.log.Warnf("registry: skipping incomplete version %s", v)
	}
	if latest == "" {
		r.log.Warnf("registry: no complete model version available")
		return false
	}
	a, err := r.store.Read(ctx, latest)
	if err != nil {
		r.log.Errorf("registry: read %s: %v", latest, err)
		return false
	}
	if a.Version == "" {
		a.Version = latest
	}
	if err := a.validate(); err != nil {
		r.log.Errorf("registry: %v", err)
		return false
	}
	r.activate(a)
	r.log.Infof("registry: loaded model %s", a.Version)
	return true
}

// Reload re-reads the store. It is LoadLatest under the name operators use.
func (r *Registry) Reload(ctx context.Context) bool { return r.LoadLatest(ctx) }

// Save persists a new version and makes it active. An empty meta.Version is
// assigned NextVersion.
func (r *Registry) Save(ctx context.Context, reg regression.Regressor, sc regression.Scaler, meta Metadata) (Artifact, error) {
	if meta.Version == "" {
		v, err := r.NextVersion(ctx)
		if err != nil {
			return Artifact{}, err
		}
		meta.Version = v
	}
	if len(meta.FeatureNames) == 0 {
		meta.FeatureNames = append([]string(nil), features.Names...)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = r.now().UTC()
	}
	if meta.ModelKind == "" && reg != nil {
		meta.ModelKind = reg.Kind()
	}
	a := Artifact{Version: meta.Version, Regressor: reg, Scaler: sc, Metadata: meta}
	if err := a.validate(); err != nil {
		return Artifact{}, fmt.Errorf("save model: %w", err)
	}
	if err := r.store.Write(ctx, a); err != nil {
		return Artifact{}, fmt.Errorf("save model %s: %w", a.Version, err)
	}
	r.activate(a)
	r.log.Infof("registry: saved and activated model %s", a.Version)
	return a, nil
}

// NextVersion returns v1 for an empty store, otherwise one past the highest
// stored version.
func (r *Registry) NextVersion(ctx context.Context) (string, error) {
	labels, err := r.store.Versions(ctx)
	if err != nil {
		return "", fmt.Errorf("next version: %w", err)
	}
	sorted := SortVersions(labels)
	if len(sorted) == 0 {
		return FormatVersion(1), nil
	}
	n, _ := ParseVersion(sorted[0])
	return FormatVersion(n + 1), nil
}

// Versions lists stored versions, newest first.
func (r *Registry) Versions(ctx context.Context) ([]string, error) {
	labels, err := r.store.Versions(ctx)
	if err != nil {
		return nil, err
	}
	return SortVersions(labels), nil
}

func (r *Registry) IsLoaded() bool { return r.active.Load() != nil }

// Active returns a snapshot of the active artifact.
func (r *Registry) Active() (Artifact, bool) {
	a := r.active.Load()
	if a == nil {
		return Artifact{}, false
	}
	return *a, true
}

// MustActive is Active for callers that already checked IsLoaded.
func (r *Registry) MustActive() Artifact {
	a, ok := r.Active()
	if !ok {
		panic(ErrNotLoaded)
	}
	return a
}

// Metadata of the active model.
func (r *Registry) Metadata() (Metadata, bool) {
	a, ok := r.Active()
	return a.Metadata, ok
}

func (r *Registry) activate(a Artifact) {
	r.active.Store(&a)
	if r.onActivate != nil {
		r.onActivate(a.Metadata)
	}
}
