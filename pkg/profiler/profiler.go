package profiler

import (
	"net/http"
	"net/http/pprof"
)

const PathPrefix = "/debug/pprof/"

// Register mounts the pprof handlers on mux, used by the metrics server when
// profiling is switched on.
// Based off https://github.com/thushan/smash/blob/main/pkg/profiler/profiler.go
func Register(mux *http.ServeMux) {
	mux.HandleFunc(PathPrefix, pprof.Index)
	mux.HandleFunc(PathPrefix+"cmdline", pprof.Cmdline)
	mux.HandleFunc(PathPrefix+"profile", pprof.Profile)
	mux.HandleFunc(PathPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc(PathPrefix+"trace", pprof.Trace)
}
