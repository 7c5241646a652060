package app

import (
	"net/http"
	"time"

	"github.com/thushan/switchyard/internal/util"
	"github.com/thushan/switchyard/pkg/format"
	"github.com/thushan/switchyard/pkg/nerdstats"
)

type ProcessStatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Memory    struct {
		HeapAlloc      string `json:"heap_alloc"`
		HeapInuse      string `json:"heap_inuse"`
		StackInuse     string `json:"stack_inuse"`
		TotalAlloc     string `json:"total_alloc"`
		MemoryPressure string `json:"memory_pressure"`
	} `json:"memory"`

	GarbageCollection struct {
		LastGC      string `json:"last_gc"`
		TotalGCTime string `json:"total_gc_time"`
		AvgGCPause  string `json:"avg_gc_pause"`
		NumGC       uint32 `json:"num_gc_cycles"`
	} `json:"garbage_collection"`

	Goroutines struct {
		HealthStatus string `json:"health_status"`
		Count        int    `json:"count"`
	} `json:"goroutines"`

	Runtime struct {
		Uptime    string `json:"uptime"`
		GoVersion string `json:"go_version"`
		NetObjs   int64  `json:"net_objects"`
	} `json:"runtime"`
}

func (a *Application) processStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := nerdstats.Snapshot(a.StartTime)

	response := ProcessStatsResponse{
		Timestamp: time.Now(),
	}

	response.Memory.HeapAlloc = format.Bytes(stats.HeapAlloc)
	response.Memory.HeapInuse = format.Bytes(stats.HeapInuse)
	response.Memory.StackInuse = format.Bytes(stats.StackInuse)
	response.Memory.TotalAlloc = format.Bytes(stats.TotalAlloc)
	response.Memory.MemoryPressure = stats.MemoryPressure()

	response.GarbageCollection.NumGC = stats.NumGC
	if !stats.LastGC.IsZero() {
		response.GarbageCollection.LastGC = stats.LastGC.Format(time.RFC3339)
		response.GarbageCollection.TotalGCTime = format.Duration(stats.TotalGCTime)
		response.GarbageCollection.AvgGCPause = stats.AverageGCPause()
	}

	response.Goroutines.Count = stats.NumGoroutines
	response.Goroutines.HealthStatus = stats.GoroutineStatus(a.expectedGoroutines())

	response.Runtime.Uptime = format.Duration(stats.Uptime)
	response.Runtime.GoVersion = stats.GoVersion
	response.Runtime.NetObjs = util.SafeInt64Diff(stats.Mallocs, stats.Frees)

	writeJSON(w, http.StatusOK, response)
}

// expectedGoroutines is roughly one runner per scheduled check plus the
// server, poll loop and config watcher
func (a *Application) expectedGoroutines() int {
	checks := 0
	for _, list := range a.manager.HealthCheckRegistry().AllHealthChecks() {
		checks += len(list)
	}
	return checks + 16
}
