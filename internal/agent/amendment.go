package agent

import (
	"context"
	"fmt"
	"log"
)

const approvalQuestion = "Approve this amendment?"

const (
	replyAmendmentApplied  = "Amendment approved and saved to the constitution."
	replyAmendmentRejected = "Amendment rejected. No changes were made."
)

// draftAmendment turns a free-form change request into formal legal text,
// stores it as the pending amendment, and asks the user for confirmation.
func (e *Engine) draftAmendment(ctx context.Context, s *State) (stepResult, error) {
	prompt := fmt.Sprintf(
		"Draft formal legal text to amend the constitution for: '%s'. Return ONLY the legal amendment text in proper format.",
		s.LatestInput(),
	)
	draft, err := e.llm.Complete(ctx, "", prompt)
	if err != nil {
		return stepResult{}, err
	}

	reply := fmt.Sprintf("I have drafted this amendment:\n\n%s\n\nShould I save this to the Constitution? (yes/no)", draft)
	return stepResult{update: &Update{
		Messages:         []Message{{Role: RoleAssistant, Text: reply}},
		PendingAmendment: &draft,
	}}, nil
}

// awaitApproval is the suspend point. It surfaces the draft for human
// review; nothing past it runs until Resume supplies a decision.
func (e *Engine) awaitApproval(ctx context.Context, s *State) (stepResult, error) {
	return stepResult{interrupt: &Interrupt{
		Question: approvalQuestion,
		Draft:    s.PendingAmendment,
	}}, nil
}

// DecisionApproved reports whether a resume decision counts as approval.
// Only the boolean true and the exact strings "approve" and "yes" approve;
// every other value, casing, or type rejects. Ambiguous input never
// silently approves.
func DecisionApproved(decision any) bool {
	switch v := decision.(type) {
	case bool:
		return v
	case string:
		return v == "approve" || v == "yes"
	default:
		return false
	}
}

// applyUpdate commits or discards the pending amendment. Reaching this
// node without a draft is a branch invariant violation.
func (e *Engine) applyUpdate(ctx context.Context, s *State) (stepResult, error) {
	if s.PendingAmendment == "" {
		log.Printf("workflow: apply_update reached without a pending amendment (conversation %s)", s.ConversationID)
		return stepResult{}, ErrMissingDraft
	}

	reply := replyAmendmentRejected
	if s.Approval != nil && *s.Approval {
		if err := e.store.Append(ctx, s.PendingAmendment, SourceUserAmendment); err != nil {
			return stepResult{}, err
		}
		reply = replyAmendmentApplied
	}

	cleared := ""
	return stepResult{update: &Update{
		Messages:         []Message{{Role: RoleAssistant, Text: reply}},
		PendingAmendment: &cleared,
	}}, nil
}
