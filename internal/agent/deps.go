package agent

import "context"

// Passage source labels stored alongside knowledge-base entries.
const (
	SourceOriginal      = "original"
	SourceUserAmendment = "user_amendment"
)

// Passage is one retrieved knowledge-base entry, ordered by ascending
// distance from the query.
type Passage struct {
	ChunkID  int     `json:"chunk_id"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// Completer is the text-generation capability every LLM-backed node uses.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// KnowledgeStore holds the constitution passages. Appends are additive only;
// records are never edited or deleted. Implementations must make an append
// atomic from a concurrent reader's perspective.
type KnowledgeStore interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
	Append(ctx context.Context, content, source string) error
	IsEmpty(ctx context.Context) (bool, error)
}

// CheckpointStore persists conversation state across the suspend boundary.
// Load returns ErrConversationNotFound when no state exists for the ID.
type CheckpointStore interface {
	Save(ctx context.Context, s *State) error
	Load(ctx context.Context, conversationID string) (*State, error)
}
