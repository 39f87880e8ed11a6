package registry

import "time"

// DefaultRecencyWindow is how recently a playlist must have been written for
// its stream to count as live. It must exceed the upstream writer's refresh
// interval or live streams flap offline between writes.
const DefaultRecencyWindow = 30 * time.Second

// StreamRecord is the registry's view of one stream.
type StreamRecord struct {
	Name string

	// Live is written by both publish events and directory scans.
	Live bool

	// StartedAt is set on every offline to live transition. It is stale while
	// the stream is offline.
	StartedAt time.Time

	// ViewerEstimate counts playlist fetches since the last publish event.
	// It is a request counter, not a concurrent viewer gauge.
	ViewerEstimate int

	LastViewerPing time.Time
}

// Transition describes what a scan observation did to a record.
type Transition int

const (
	NoChange Transition = iota
	// DiscoveredOffline is a new record created from a stale playlist.
	DiscoveredOffline
	// DiscoveredLive is a new record created from a fresh playlist.
	DiscoveredLive
	WentLive
	WentOffline
)

func (t Transition) String() string {
	switch t {
	case NoChange:
		return "none"
	case DiscoveredOffline:
		return "discovered_offline"
	case DiscoveredLive:
		return "discovered_live"
	case WentLive:
		return "went_live"
	case WentOffline:
		return "went_offline"
	default:
		return "unknown"
	}
}

// StreamTransition pairs a stream name with the transition a scan applied.
type StreamTransition struct {
	Name       string
	Transition Transition
}

// ScanResult summarises one reconciliation cycle.
type ScanResult struct {
	// Skipped is true when the artifact directory does not exist.
	Skipped     bool
	Artifacts   int
	Transitions []StreamTransition
}
