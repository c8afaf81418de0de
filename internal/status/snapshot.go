// internal/status/snapshot.go
package status

import "time"

// Snapshot is the point-in-time state of one block.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	LastError      string
	SecondsInError uint16

	// Epoch counts successful publications. 0 means never fetched.
	Epoch     uint64
	FetchedAt time.Time
}

// Tracker is the per-block bookkeeping the registry keeps under its lock.
type Tracker struct {
	epoch      uint64
	fetchedAt  time.Time
	errCode    uint16
	errText    string
	errorSince time.Time
}

// Success records a successful cycle at now.
func (t *Tracker) Success(now time.Time) {
	t.epoch++
	t.fetchedAt = now
	t.errCode = 0
	t.errText = ""
	t.errorSince = time.Time{}
}

// Failure records a failed cycle at now.
// errorSince keeps the first failure of the current error streak.
func (t *Tracker) Failure(now time.Time, code uint16, text string) {
	if code == 0 {
		code = 1
	}
	t.errCode = code
	t.errText = text
	if t.errorSince.IsZero() {
		t.errorSince = now
	}
}

// Epoch returns the number of successful cycles.
func (t *Tracker) Epoch() uint64 { return t.epoch }

// Snapshot evaluates the tracker at now.
// staleAfter <= 0 disables stale detection.
func (t *Tracker) Snapshot(now time.Time, staleAfter time.Duration) Snapshot {
	s := Snapshot{
		Health:        HealthUnknown,
		LastErrorCode: t.errCode,
		LastError:     t.errText,
		Epoch:         t.epoch,
		FetchedAt:     t.fetchedAt,
	}

	switch {
	case t.errCode != 0:
		s.Health = HealthError
		secs := now.Sub(t.errorSince) / time.Second
		if secs < 0 {
			secs = 0
		}
		if secs > MaxSecondsInError {
			secs = MaxSecondsInError
		}
		s.SecondsInError = uint16(secs)
	case t.epoch == 0:
		s.Health = HealthUnknown
	case staleAfter > 0 && now.Sub(t.fetchedAt) > staleAfter:
		s.Health = HealthStale
	default:
		s.Health = HealthOK
	}

	return s
}

// HealthName returns a short label for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return "invalid"
	}
}
