// Package registry tracks which streams are live by combining publish events
// from the ingest server with the recency of the playlists it writes.
package registry

import (
	"log/slog"
	"sync"
	"time"
)

// Registry owns all stream state. A single mutex guards the whole table, so
// every operation is serialised. Scan holds the lock while it reads the
// artifact directory, so other callers wait for the walk to finish.
type Registry struct {
	mu        sync.Mutex
	store     Store
	artifacts ArtifactSource
	window    time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore replaces the default in-memory store.
func WithStore(s Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRecencyWindow overrides DefaultRecencyWindow. Non-positive values are ignored.
func WithRecencyWindow(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New returns a Registry that reads playlist artifacts from artifacts.
func New(artifacts ArtifactSource, opts ...Option) *Registry {
	r := &Registry{
		store:     NewInMemoryStore(),
		artifacts: artifacts,
		window:    DefaultRecencyWindow,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "registry")
	return r
}

// RecencyWindow returns the configured liveness window.
func (r *Registry) RecencyWindow() time.Duration {
	return r.window
}

// OnPublish marks name live, resetting its start time and viewer estimate.
func (r *Registry) OnPublish(name string) {
	r.mu.Lock()
	r.store.Put(&StreamRecord{
		Name:      name,
		Live:      true,
		StartedAt: r.now(),
	})
	r.mu.Unlock()

	r.log.Info("stream started", slog.String("stream", name))
}

// OnPublishDone marks name offline. Unknown streams are ignored.
func (r *Registry) OnPublishDone(name string) {
	r.mu.Lock()
	rec, ok := r.store.Get(name)
	if ok {
		rec.Live = false
	}
	r.mu.Unlock()

	if ok {
		r.log.Info("stream ended", slog.String("stream", name))
	} else {
		r.log.Debug("publish done for unknown stream", slog.String("stream", name))
	}
}

// RecordViewerActivity counts one playlist fetch for name. It never creates
// a record.
func (r *Registry) RecordViewerActivity(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.store.Get(name)
	if !ok {
		return
	}
	rec.LastViewerPing = r.now()
	rec.ViewerEstimate++
}

// GetStream returns a copy of the record for name. For unknown streams it
// returns a transient record whose liveness comes from the playlist alone;
// that record is not stored.
func (r *Registry) GetStream(name string) StreamRecord {
	r.mu.Lock()
	rec, ok := r.store.Get(name)
	var out StreamRecord
	if ok {
		out = *rec
	}
	r.mu.Unlock()

	if ok {
		return out
	}
	return StreamRecord{Name: name, Live: r.playlistActive(name)}
}

// GetAllStreams returns a copy of every stored record, in no particular order.
func (r *Registry) GetAllStreams() []StreamRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := r.store.Names()
	out := make([]StreamRecord, 0, len(names))
	for _, name := range names {
		if rec, ok := r.store.Get(name); ok {
			out = append(out, *rec)
		}
	}
	return out
}

// IsLive reports whether name is live according to its record or, failing
// that, to a fresh look at its playlist. The two can disagree until the next
// scan reconciles them.
func (r *Registry) IsLive(name string) bool {
	r.mu.Lock()
	rec, ok := r.store.Get(name)
	live := ok && rec.Live
	r.mu.Unlock()

	if live {
		return true
	}
	return r.playlistActive(name)
}

// Counts returns the number of live records and the total number of records.
func (r *Registry) Counts() (live, known int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.store.Names() {
		if rec, ok := r.store.Get(name); ok && rec.Live {
			live++
		}
	}
	return live, r.store.Len()
}

// Scan reconciles the table against the artifact directory in one lock
// acquisition. A missing directory skips the cycle; a listing failure is
// returned without touching the table.
func (r *Registry) Scan() (ScanResult, error) {
	res, err := r.scan()
	if err != nil {
		return res, err
	}

	for _, t := range res.Transitions {
		switch t.Transition {
		case WentLive, DiscoveredLive:
			r.log.Info("stream detected via playlist scan", slog.String("stream", t.Name), slog.String("transition", t.Transition.String()))
		case WentOffline:
			r.log.Info("stream ended (detected via playlist scan)", slog.String("stream", t.Name))
		case DiscoveredOffline:
			r.log.Debug("stale playlist discovered", slog.String("stream", t.Name))
		}
	}
	return res, nil
}

func (r *Registry) scan() (ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.artifacts.Exists() {
		return ScanResult{Skipped: true}, nil
	}

	artifacts, err := r.artifacts.List()
	if err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Artifacts: len(artifacts)}
	for _, a := range artifacts {
		now := r.now()
		active := recentlyActive(a.ModTime, now, r.window)

		current, exists := r.store.Get(a.Name)
		base := StreamRecord{Name: a.Name}
		if exists {
			base = *current
		}

		next, transition := Reconcile(base, exists, active, now)
		if transition == NoChange {
			continue
		}
		if exists {
			*current = next
		} else {
			r.store.Put(&next)
		}
		res.Transitions = append(res.Transitions, StreamTransition{Name: a.Name, Transition: transition})
	}
	return res, nil
}

// playlistActive checks the playlist for name without holding the lock.
func (r *Registry) playlistActive(name string) bool {
	modTime, ok := r.artifacts.ModTime(name)
	if !ok {
		return false
	}
	return recentlyActive(modTime, r.now(), r.window)
}
