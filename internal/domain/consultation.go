package domain

import "time"

// Consultation represents one served tool call: the question asked, the
// codebase it ran against, and the deliverable produced. It serves as the
// canonical record across the application (Server -> Orchestrator -> Storage).
type Consultation struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Directory  string    `json:"directory"`
	Input      string    `json:"input"`
	Result     string    `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	Status     string    `json:"status"`    // success, error
	Truncated  bool      `json:"truncated"` // report was cut to the character budget
	CreatedAt  time.Time `json:"created_at"`
	DurationMs int64     `json:"duration_ms"`
}
