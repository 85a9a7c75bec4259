package services

// GenerationResult reports one config generation run. Failures are
// carried in Error; generators never return them.
type GenerationResult struct {
	Success         bool              `json:"success"`
	Skipped         bool              `json:"skipped,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Files           []string          `json:"files"`
	RequiresRestart bool              `json:"requiresRestart"`
	Error           string            `json:"error,omitempty"`
	Diffs           map[string]string `json:"diffs,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
}

// Skip marks the result as a successful no-op.
func (r *GenerationResult) Skip(reason string) {
	r.Success = true
	r.Skipped = true
	r.Reason = reason
}

// Fail records err and clears the success flag.
func (r *GenerationResult) Fail(err error) {
	r.Success = false
	r.Error = err.Error()
}
