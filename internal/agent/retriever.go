package agent

import (
	"context"
	"fmt"
	"strings"
)

// retrieve fills the state's context with the nearest passages to the
// question, closest first. An empty store yields an empty context, not an
// error.
func (e *Engine) retrieve(ctx context.Context, s *State) (stepResult, error) {
	passages, err := e.store.Search(ctx, s.LatestInput(), e.retrievalK)
	if err != nil {
		return stepResult{}, err
	}

	sections := make([]string, len(passages))
	for i, p := range passages {
		sections[i] = fmt.Sprintf("Section %d:\n%s", i+1, p.Content)
	}
	contextText := strings.Join(sections, "\n\n")
	return stepResult{update: &Update{Context: &contextText}}, nil
}
