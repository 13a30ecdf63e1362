package engine

import "time"

// Config is the engine's process-wide configuration, carried explicitly as
// a value rather than centralized in a singleton. A host constructs
// one and passes it to New.
type Config struct {
	// MaxThreads bounds the shared worker pool. 0 disables concurrency:
	// Execution Path Workers run inline on the calling goroutine.
	MaxThreads int
	// IdleTimeout bounds how long a pool submission waits for a free
	// slot before the drive loop gives up with ExecutorSaturated, and how
	// long Close waits for the pool to drain.
	IdleTimeout time.Duration
	// PathSeparator joins a parent path name and a branch label into a
	// child path name, and separates a repository key's namespace prefix
	// from a case id. Forbidden as a branch label character.
	PathSeparator byte
	// ErrorWorkbasket is where a Task's thrown exception parks the path.
	ErrorWorkbasket string
	// WriteAuditLog, if true, copies every snapshot under a sequenced
	// companion key.
	WriteAuditLog bool
	// WriteProcessInfoAfterEachStep, if true (the default), snapshots
	// after every path advance; otherwise only at pend/complete/persist.
	WriteProcessInfoAfterEachStep bool
	// WorkerStaleAfter bounds how long a single executeStep()/
	// executeRoute() invocation may run before the engine logs it as
	// stuck. The engine cannot forcibly cancel uncooperative user code;
	// this only gives a host something to alert on. 0 disables the
	// watch.
	WorkerStaleAfter time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxThreads:                    8,
		IdleTimeout:                   30 * time.Second,
		PathSeparator:                 '-',
		ErrorWorkbasket:               "workflow_error",
		WriteAuditLog:                 false,
		WriteProcessInfoAfterEachStep: true,
	}
}

const pauseWorkBasket = "workflow_pause"
