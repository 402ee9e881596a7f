package agent

import "context"

const classifierPrompt = `Classify the user's intent:
1. 'QUERY' - Constitution questions.
2. 'AMEND' - Update/Change/Amend the Constitution.
3. 'GREETING' - Hello/Hi/Thanks.
Return ONLY the classification word.`

// classifyIntent labels the latest user turn. Unrecognized model output
// falls back to QUERY so a bad classification never fails the turn.
func (e *Engine) classifyIntent(ctx context.Context, s *State) (stepResult, error) {
	raw, err := e.llm.Complete(ctx, classifierPrompt, s.LatestInput())
	if err != nil {
		return stepResult{}, err
	}

	intent, ok := ParseIntent(raw)
	if !ok {
		intent = IntentQuery
	}
	return stepResult{update: &Update{Intent: &intent}}, nil
}
