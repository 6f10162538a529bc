package config

// Backend types
const (
	BackendOpenAI    = "openai"
	BackendGenAI     = "genai"
	BackendLangChain = "langchain"
)

// Server identity reported during the MCP handshake
const (
	ServerName    = "codebase-consultant"
	ServerVersion = "0.1.0"
)

// MCP Tool Names
const (
	ToolPlanFeature = "plan_feature"
	ToolPlanBugFix  = "plan_bug_fix"
	ToolExplainCode = "explain_code"
)

// Model defaults. The default endpoint is Gemini's OpenAI-compatible surface;
// any compatible endpoint can be substituted via configuration.
const (
	DefaultModel    = "gemini-2.5-pro"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

// Report limits
const (
	// DefaultCharLimit caps the codebase report characters embedded into
	// prompts, roughly 50k tokens of headroom under a 200k-token window.
	DefaultCharLimit = 200000
)

// Storage formatting
const (
	TruncatedSuffix = "... [TRUNCATED]"
	// MaxStoredField caps persisted free-text fields (inputs, results, errors)
	MaxStoredField = 4000
)
