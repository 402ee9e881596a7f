package agent

import (
	"context"
	"fmt"
)

const answerSystemPrompt = "You are an expert assistant on Pakistan's Constitution."

const answerPromptTemplate = `Based on the Constitution of Pakistan context provided below, answer the question accurately and concisely.

Instructions:
- Answer based ONLY on the provided context
- Be accurate and cite specific parts when possible
- If the context doesn't contain enough information, say so
- Keep answers clear and concise

Context:
%s

Question: %s`

// generateAnswer produces the grounded reply for the QUERY branch.
func (e *Engine) generateAnswer(ctx context.Context, s *State) (stepResult, error) {
	prompt := fmt.Sprintf(answerPromptTemplate, s.Context, s.LatestInput())
	reply, err := e.llm.Complete(ctx, answerSystemPrompt, prompt)
	if err != nil {
		return stepResult{}, err
	}
	return stepResult{update: &Update{
		Messages: []Message{{Role: RoleAssistant, Text: reply}},
	}}, nil
}
