package health

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

const (
	DefaultLogTimeout = 2 * time.Minute

	// repeated failures are summarised every Nth occurrence
	repeatedFailureLogEvery = 10
)

// StatusTransitionTracker reduces logging noise for scheduled checks by only
// logging health flips plus a periodic summary of repeated failures
type StatusTransitionTracker struct {
	entries *xsync.Map[string, *statusEntry]
}

type statusEntry struct {
	lastLogTime atomic.Int64 // unix nano
	errorCount  atomic.Int64
	healthy     atomic.Bool
}

func NewStatusTransitionTracker() *StatusTransitionTracker {
	return &StatusTransitionTracker{
		entries: xsync.NewMap[string, *statusEntry](),
	}
}

// ShouldLog records the latest outcome for key and reports whether it's
// worth a log line, along with the current run of consecutive failures
func (st *StatusTransitionTracker) ShouldLog(key string, healthy bool) (bool, int) {
	entry, loaded := st.entries.LoadOrCompute(key, func() (*statusEntry, bool) {
		e := &statusEntry{}
		e.healthy.Store(healthy)
		e.lastLogTime.Store(time.Now().UnixNano())
		return e, false
	})
	if !loaded {
		// first time we've seen it, always log
		if !healthy {
			entry.errorCount.Store(1)
		}
		return true, int(entry.errorCount.Load())
	}

	if entry.healthy.Swap(healthy) != healthy {
		entry.lastLogTime.Store(time.Now().UnixNano())
		if healthy {
			entry.errorCount.Store(0)
		} else {
			entry.errorCount.Store(1)
		}
		return true, int(entry.errorCount.Load())
	}

	if healthy {
		return false, 0
	}

	count := entry.errorCount.Add(1)
	lastLog := time.Unix(0, entry.lastLogTime.Load())
	if count%repeatedFailureLogEvery == 0 || time.Since(lastLog) > DefaultLogTimeout {
		entry.lastLogTime.Store(time.Now().UnixNano())
		return true, int(count)
	}
	return false, int(count)
}

func (st *StatusTransitionTracker) Forget(key string) {
	st.entries.Delete(key)
}
