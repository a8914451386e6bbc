package profile

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes a profiling session.
type Profiler struct {
	// Mode is one of [Modes]. An empty or unsupported mode disables
	// profiling.
	Mode string
	// Dir is the output directory. Empty selects the working directory.
	Dir string
	// Quiet suppresses the messages printed on start and stop.
	Quiet bool
}

// Start begins profiling. The returned Stopper is never nil, and stopping it
// is always safe.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
