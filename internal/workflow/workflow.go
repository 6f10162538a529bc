package workflow

import "codebase-consultant/internal/llm"

// Report is the externally generated codebase summary supplied as prompt
// context. Truncated is set when the generator cut the text to fit the
// configured character budget.
type Report struct {
	Text      string
	Truncated bool
}

// TruncationNotice is included in every prompt built from a truncated report
// so the model knows parts of the codebase are missing.
const TruncationNotice = "NOTE: The codebase report above was truncated to fit the size limit. Parts of the codebase are missing, so the analysis may be incomplete."

// Workflow builds the two sequential instructions for one consultation task:
// Phase1 produces intermediate analysis, Phase2 produces the final deliverable
// conditioned on it. Implementations are stateless and perform no I/O.
type Workflow interface {
	// Name identifies the workflow in logs, metrics and errors.
	Name() string
	// Phase1 builds the analysis instruction from the user input and report.
	Phase1(input string, report Report) llm.Instruction
	// Phase2 builds the deliverable instruction, conditioned on Phase1's output.
	Phase2(input string, report Report, analysis string) llm.Instruction
}

// The three supported consultation workflows.
var (
	FeaturePlanning Workflow = featurePlanning{}
	BugFixPlanning  Workflow = bugFixPlanning{}
	CodeExplanation Workflow = codeExplanation{}
)

// reportBlock quotes the report for prompt embedding. The truncation notice
// follows the text, mirroring where the cut happened.
func reportBlock(r Report) string {
	if !r.Truncated {
		return r.Text
	}
	return r.Text + "\n\n" + TruncationNotice
}
