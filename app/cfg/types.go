package cfg

type Cfg struct {
	// Pipeline directories
	MarkerDir     string
	OutputDir     string
	QuarantineDir string

	// Report configuration
	ReportPath   string
	AppendReport bool

	// Validation configuration
	MinExamples int

	// Database configuration
	DBPath string

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
