package failwatch

// Default configuration values for New.
const (
	// DefaultLogDirName is the directory under the system temp directory
	// captures are written to when no log directory is configured. The full
	// path is filepath.Join(os.TempDir(), DefaultLogDirName).
	DefaultLogDirName = "failwatch-logs"

	// DefaultMaxParallelSuites is the parallel lane capacity. 0 means
	// unlimited.
	DefaultMaxParallelSuites = 0

	// DefaultLogTailLines limits each collected container log to its last N
	// lines.
	DefaultLogTailLines = 10000

	// DefaultCollectConcurrency is how many namespaces one capture collects
	// from at once.
	DefaultCollectConcurrency = 4
)

// Environment variables read by FromEnvironment.
const (
	// EnvLogDir is the capture output directory.
	EnvLogDir = "TEST_LOG_DIR"
	// EnvNamespaces is a comma-separated list of namespaces to collect from.
	EnvNamespaces = "FAILWATCH_NAMESPACES"
	// EnvMaxParallelSuites is the parallel lane capacity.
	EnvMaxParallelSuites = "FAILWATCH_MAX_PARALLEL_SUITES"
	// EnvTimingDB is the SQLite file timing measurements are persisted to.
	EnvTimingDB = "FAILWATCH_TIMING_DB"
	// EnvCaptureLock is the file locked during captures across processes.
	EnvCaptureLock = "FAILWATCH_CAPTURE_LOCK"
	// EnvLogTailLines limits collected container logs.
	EnvLogTailLines = "FAILWATCH_LOG_TAIL_LINES"
)
