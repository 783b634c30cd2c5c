// Package observability holds opt-in debugging surfaces that are too
// dangerous to leave on in production.
package observability

// Config captures the observability toggles threaded into the HTTP edge.
type Config struct {
	// EnablePprofTrace mounts the net/http/pprof handlers under
	// /debug/pprof/ on the public mux.
	EnablePprofTrace bool
}
