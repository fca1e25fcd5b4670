package workflow

// WorkflowConfig holds the options of one run or chat invocation
type WorkflowConfig struct {
	FileLocation string   // prompt file
	Model        string   // e.g. gpt-4
	Temperature  float64  // sampling temperature
	Stop         []string // optional stop sequences
	VarsFile     string   // optional YAML file with [[variable]] values
}

func (c WorkflowConfig) validate() error {
	if c.FileLocation == "" {
		return &InvalidConfigError{Field: "file_location", Message: "prompt file is required"}
	}
	if c.Model == "" {
		return &InvalidConfigError{Field: "model", Message: "model is required"}
	}
	return nil
}

// InvalidConfigError reports an unusable WorkflowConfig
type InvalidConfigError struct {
	Field   string
	Message string
}

func (e *InvalidConfigError) Error() string {
	return "invalid workflow config: " + e.Field + ": " + e.Message
}
