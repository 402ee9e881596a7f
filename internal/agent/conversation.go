package agent

import (
	"context"
	"fmt"
)

// converse handles greetings and casual turns with a single polite reply.
func (e *Engine) converse(ctx context.Context, s *State) (stepResult, error) {
	reply, err := e.llm.Complete(ctx, "", fmt.Sprintf("Reply politely to this greeting: %s", s.LatestInput()))
	if err != nil {
		return stepResult{}, err
	}
	return stepResult{update: &Update{
		Messages: []Message{{Role: RoleAssistant, Text: reply}},
	}}, nil
}
