package llm

import "context"

// SystemPrompt instructs models to answer riddles with a bare entity name.
const SystemPrompt = "You answer riddles that obliquely describe a single real-world entity " +
	"(movie, character, historical figure, item, place). " +
	"Return ONLY the most likely name as a short proper noun or noun phrase. " +
	"Do not explain or add punctuation."

// Invoker asks one model a single question. Ask is exactly one remote
// request: no internal retries, and the caller's context carries the
// timeout. Failures are returned, never panicked.
type Invoker interface {
	Model() string
	Ask(ctx context.Context, question string) (string, error)
}

// defaultMaxTokens bounds answer length; the benchmark expects short
// entity names, but reasoning models may burn tokens before the answer.
const defaultMaxTokens = 2048
