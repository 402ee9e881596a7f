package agent

import "strings"

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentQuery    Intent = "QUERY"
	IntentAmend    Intent = "AMEND"
	IntentGreeting Intent = "GREETING"
)

// ParseIntent normalizes raw classifier output. ok is false when the output
// is not one of the three known labels.
func ParseIntent(raw string) (Intent, bool) {
	switch Intent(strings.ToUpper(strings.TrimSpace(raw))) {
	case IntentQuery:
		return IntentQuery, true
	case IntentAmend:
		return IntentAmend, true
	case IntentGreeting:
		return IntentGreeting, true
	default:
		return "", false
	}
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part is one typed segment of structured message content.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Message is a single conversation turn. Content is either plain Text or a
// sequence of typed Parts; at most one of the two is set.
type Message struct {
	Role  string `json:"role"`
	Text  string `json:"text,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// PlainText flattens the message content to a single string. Structured
// parts are joined with spaces.
func (m Message) PlainText() string {
	if len(m.Parts) == 0 {
		return m.Text
	}
	texts := make([]string, len(m.Parts))
	for i, p := range m.Parts {
		texts[i] = p.Text
	}
	return strings.Join(texts, " ")
}

// Status tracks where a conversation sits relative to the suspend boundary.
type Status string

const (
	StatusActive           Status = "active"
	StatusAwaitingDecision Status = "awaiting_decision"
	StatusCompleted        Status = "completed"
)

// State is the single record threaded through every workflow node.
// Messages only ever grow; the remaining fields are overwritten by node
// outputs via Apply.
type State struct {
	ConversationID   string    `json:"conversation_id"`
	Status           Status    `json:"status"`
	WaitingNode      string    `json:"waiting_node,omitempty"`
	Messages         []Message `json:"messages"`
	Intent           Intent    `json:"intent,omitempty"`
	Context          string    `json:"context,omitempty"`
	PendingAmendment string    `json:"pending_amendment,omitempty"`
	Approval         *bool     `json:"approval,omitempty"`
}

// LatestInput returns the flattened content of the most recent message.
func (s *State) LatestInput() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].PlainText()
}

// LastReply returns the most recent assistant message, or "".
func (s *State) LastReply() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].PlainText()
		}
	}
	return ""
}

// Update is a node's partial output. Nil pointer fields leave the
// corresponding state field untouched.
type Update struct {
	Messages         []Message
	Intent           *Intent
	Context          *string
	PendingAmendment *string
	Approval         *bool
}

// Apply merges a node output into the state: Messages append to the
// existing sequence, every other field overwrites when set.
func (s *State) Apply(u *Update) {
	if u == nil {
		return
	}
	s.Messages = append(s.Messages, u.Messages...)
	if u.Intent != nil {
		s.Intent = *u.Intent
	}
	if u.Context != nil {
		s.Context = *u.Context
	}
	if u.PendingAmendment != nil {
		s.PendingAmendment = *u.PendingAmendment
	}
	if u.Approval != nil {
		v := *u.Approval
		s.Approval = &v
	}
}
