package harness

// BuildRecord is the outcome of one flow step's build.
type BuildRecord struct {
	Step     int      `json:"step"`
	Compiled []string `json:"compiled"`
	Cached   []string `json:"cached"`
	Failed   []string `json:"failed"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Builds records each flow step in order.
	Builds []BuildRecord `json:"builds"`

	// Outputs maps each successfully built document to its rendered text,
	// as of the last build.
	Outputs map[string]string `json:"outputs"`

	// Failures maps each failed document to its error code, as of the last
	// build. Errors without a code map to "error".
	Failures map[string]string `json:"failures,omitempty"`

	// Functions lists the runtime functions recorded by the last build.
	Functions []string `json:"functions,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Builds:   []BuildRecord{},
		Outputs:  make(map[string]string),
		Failures: make(map[string]string),
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
