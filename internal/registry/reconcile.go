package registry

import "time"

// Reconcile applies one scan observation to a record and returns the updated
// record. exists is false when the registry has no record for the stream yet;
// rec.Name must be set either way.
//
// Merge rule: a publish event owns liveness until the playlist goes stale,
// after which the scan owns it. StartedAt belongs to whichever producer last
// flipped the stream from offline to live.
func Reconcile(rec StreamRecord, exists, active bool, now time.Time) (StreamRecord, Transition) {
	if !exists {
		out := StreamRecord{Name: rec.Name, Live: active}
		if active {
			out.StartedAt = now
			return out, DiscoveredLive
		}
		return out, DiscoveredOffline
	}

	switch {
	case active && !rec.Live:
		rec.Live = true
		rec.StartedAt = now
		return rec, WentLive
	case !active && rec.Live:
		rec.Live = false
		return rec, WentOffline
	}
	return rec, NoChange
}

// recentlyActive reports whether a playlist written at modTime is still within
// window of now. A modification time in the future counts as active.
func recentlyActive(modTime, now time.Time, window time.Duration) bool {
	return now.Sub(modTime) < window
}
