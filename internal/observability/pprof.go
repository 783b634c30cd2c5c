package observability

import (
	"net/http"
	"net/http/pprof"
)

// AttachPprof registers the pprof handlers on mux when tracing is enabled.
// The routes stay off otherwise so a production deployment never exposes
// profiling endpoints by accident.
func AttachPprof(mux *http.ServeMux, cfg Config) {
	if !cfg.EnablePprofTrace {
		return
	}
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}
