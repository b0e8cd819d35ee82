package driven

// PromptStore provides access to LLM prompt templates.
// Implementations fall back to embedded defaults when no override exists.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// PromptClassify is the remote classifier instruction set.
// The template expects a single %s placeholder for the message body.
const PromptClassify = "classify"
