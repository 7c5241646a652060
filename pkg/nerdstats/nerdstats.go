package nerdstats

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/thushan/switchyard/pkg/format"
)

/*
	nerdstats takes a point in time snapshot of the Go runtime, enough to
	judge memory pressure and goroutine growth from the status endpoint and
	the shutdown report.

	See: https://pkg.go.dev/runtime#MemStats for the fields.

	Usage:
		stats := nerdstats.Snapshot(startTime)
		log.Info("memory", "pressure", stats.MemoryPressure())
*/

const (
	PressureLow    = "LOW"
	PressureMedium = "MEDIUM"
	PressureHigh   = "HIGH"

	GoroutinesHealthy    = "HEALTHY"
	GoroutinesElevated   = "ELEVATED"
	GoroutinesConcerning = "CONCERNING"

	notAvailable = "N/A"
)

type NerdStats struct {
	// Memory stats
	HeapAlloc    uint64 // Allocated heap memory in bytes
	HeapSys      uint64 // Heap memory obtained from OS
	HeapInuse    uint64 // Heap memory in use
	HeapReleased uint64 // Heap memory released to OS
	StackInuse   uint64 // Stack memory in use
	TotalAlloc   uint64 // Total bytes allocated (cumulative)
	Mallocs      uint64
	Frees        uint64

	// Garbage collection stats
	NumGC         uint32
	LastGC        time.Time
	TotalGCTime   time.Duration
	GCCPUFraction float64

	NumGoroutines int

	// Runtime stats
	NumCPU     int
	GOMAXPROCS int
	GoVersion  string
	Uptime     time.Duration

	BuildInfo *debug.BuildInfo
}

func Snapshot(startTime time.Time) *NerdStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &NerdStats{
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		HeapInuse:    m.HeapInuse,
		HeapReleased: m.HeapReleased,
		StackInuse:   m.StackInuse,
		TotalAlloc:   m.TotalAlloc,
		Mallocs:      m.Mallocs,
		Frees:        m.Frees,

		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,

		NumGoroutines: runtime.NumGoroutine(),

		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(startTime),
	}

	if m.LastGC > 0 {
		stats.LastGC = time.Unix(0, int64(m.LastGC))
		stats.TotalGCTime = time.Duration(m.PauseTotalNs)
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		stats.BuildInfo = info
	}

	return stats
}

// MemoryPressure is a rough read of heap usage against allocation churn
func (ns *NerdStats) MemoryPressure() string {
	if ns.HeapSys == 0 {
		return PressureLow
	}
	heapUsageRatio := float64(ns.HeapInuse) / float64(ns.HeapSys)
	allocsPerFree := float64(ns.Mallocs) / float64(ns.Frees+1)

	if heapUsageRatio > 0.9 && allocsPerFree > 1.5 {
		return PressureHigh
	} else if heapUsageRatio > 0.7 || allocsPerFree > 1.2 {
		return PressureMedium
	}
	return PressureLow
}

// GoroutineStatus compares the live count against what the caller expects
// to be running. A long-running failover daemon should sit close to it, a
// steady climb usually means a leaked runner.
func (ns *NerdStats) GoroutineStatus(expected int) string {
	if expected < 1 {
		expected = 1
	}
	switch {
	case ns.NumGoroutines > expected*4:
		return GoroutinesConcerning
	case ns.NumGoroutines > expected*2:
		return GoroutinesElevated
	default:
		return GoroutinesHealthy
	}
}

func (ns *NerdStats) AverageGCPause() string {
	if ns.NumGC == 0 {
		return notAvailable
	}
	return format.Duration(ns.TotalGCTime / time.Duration(ns.NumGC))
}

// BuildInfoSummary picks the vcs and platform settings out of the build info
func (ns *NerdStats) BuildInfoSummary() map[string]string {
	summary := make(map[string]string)
	if ns.BuildInfo == nil {
		return summary
	}

	summary["path"] = ns.BuildInfo.Path
	summary["main_version"] = ns.BuildInfo.Main.Version

	for _, setting := range ns.BuildInfo.Settings {
		switch setting.Key {
		case "CGO_ENABLED", "GOARCH", "GOOS", "vcs.revision", "vcs.time":
			summary[setting.Key] = setting.Value
		}
	}
	return summary
}
