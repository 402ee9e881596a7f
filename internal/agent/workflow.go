package agent

import (
	"context"
	"errors"
	"fmt"
)

// Node names. The graph is: router → conditional dispatch by intent →
// one of three branch chains → end.
const (
	nodeRouter         = "router"
	nodeConversation   = "conversation"
	nodeRetrieve       = "retrieve"
	nodeGenerate       = "generate"
	nodeDraftAmendment = "draft_amendment"
	nodeApproval       = "approval"
	nodeApplyUpdate    = "apply_update"
	nodeEnd            = "end"
)

// Interrupt is the payload surfaced to the caller when the workflow
// suspends for an external decision.
type Interrupt struct {
	Question string `json:"question"`
	Draft    string `json:"draft"`
}

// stepResult is what every node returns. A non-nil interrupt stops
// execution after the update is merged; the engine persists the state and
// hands the interrupt to the caller.
type stepResult struct {
	update    *Update
	interrupt *Interrupt
}

type nodeFunc func(ctx context.Context, s *State) (stepResult, error)

// Outcome is the result of running a turn: either a completed state or a
// suspension with its payload.
type Outcome struct {
	State     *State
	Suspended *Interrupt
}

// Engine executes the conversation workflow graph. All dependencies are
// injected once at construction; nodes hold no globals.
type Engine struct {
	llm         Completer
	store       KnowledgeStore
	checkpoints CheckpointStore
	retrievalK  int

	nodes map[string]nodeFunc
	edges map[string]string
}

// DefaultRetrievalK is the number of passages retrieved per question when
// the caller does not configure one.
const DefaultRetrievalK = 3

func NewEngine(llm Completer, store KnowledgeStore, checkpoints CheckpointStore, retrievalK int) *Engine {
	if retrievalK <= 0 {
		retrievalK = DefaultRetrievalK
	}
	e := &Engine{
		llm:         llm,
		store:       store,
		checkpoints: checkpoints,
		retrievalK:  retrievalK,
	}
	e.nodes = map[string]nodeFunc{
		nodeRouter:         e.classifyIntent,
		nodeConversation:   e.converse,
		nodeRetrieve:       e.retrieve,
		nodeGenerate:       e.generateAnswer,
		nodeDraftAmendment: e.draftAmendment,
		nodeApproval:       e.awaitApproval,
		nodeApplyUpdate:    e.applyUpdate,
	}
	e.edges = map[string]string{
		nodeConversation:   nodeEnd,
		nodeRetrieve:       nodeGenerate,
		nodeGenerate:       nodeEnd,
		nodeDraftAmendment: nodeApproval,
		nodeApproval:       nodeApplyUpdate,
		nodeApplyUpdate:    nodeEnd,
	}
	return e
}

// route is the conditional dispatch out of the router node. QUERY is the
// default: anything that is not explicitly AMEND or GREETING retrieves.
func route(intent Intent) string {
	switch intent {
	case IntentAmend:
		return nodeDraftAmendment
	case IntentGreeting:
		return nodeConversation
	default:
		return nodeRetrieve
	}
}

// Start runs one conversation turn from the router node. When persisted
// state already exists for the ID, the turn continues that conversation's
// message history; a conversation still awaiting a decision must be
// resumed instead.
func (e *Engine) Start(ctx context.Context, conversationID string, message Message) (*Outcome, error) {
	s, err := e.checkpoints.Load(ctx, conversationID)
	switch {
	case errors.Is(err, ErrConversationNotFound):
		s = &State{ConversationID: conversationID}
	case err != nil:
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	case s.Status == StatusAwaitingDecision:
		return nil, ErrAwaitingDecision
	}

	s.Status = StatusActive
	s.Messages = append(s.Messages, message)
	return e.run(ctx, s, nodeRouter)
}

// Resume continues a suspended conversation with an external decision.
// Execution is reconstructed purely from the persisted state: no engine
// instance needs to have run the suspending turn.
func (e *Engine) Resume(ctx context.Context, conversationID string, decision any) (*Outcome, error) {
	s, err := e.checkpoints.Load(ctx, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	if s.Status != StatusAwaitingDecision || s.WaitingNode != nodeApproval {
		return nil, ErrNotSuspended
	}

	approved := DecisionApproved(decision)
	s.Apply(&Update{Approval: &approved})
	s.Status = StatusActive
	s.WaitingNode = ""
	return e.run(ctx, s, e.edges[nodeApproval])
}

// run walks the graph from the given node until the end or a suspension.
// State is persisted at both stopping points; a failed node leaves the
// last persisted state untouched so the caller may retry the whole turn.
func (e *Engine) run(ctx context.Context, s *State, current string) (*Outcome, error) {
	for current != nodeEnd {
		node, ok := e.nodes[current]
		if !ok {
			return nil, fmt.Errorf("workflow: unknown node %q", current)
		}

		res, err := node(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("workflow: node %s: %w", current, err)
		}
		s.Apply(res.update)

		if res.interrupt != nil {
			s.Status = StatusAwaitingDecision
			s.WaitingNode = current
			if err := e.checkpoints.Save(ctx, s); err != nil {
				return nil, fmt.Errorf("persist suspended conversation %s: %w", s.ConversationID, err)
			}
			return &Outcome{State: s, Suspended: res.interrupt}, nil
		}

		if current == nodeRouter {
			current = route(s.Intent)
		} else if next, ok := e.edges[current]; ok {
			current = next
		} else {
			current = nodeEnd
		}
	}

	s.Status = StatusCompleted
	s.WaitingNode = ""
	if err := e.checkpoints.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("persist conversation %s: %w", s.ConversationID, err)
	}
	return &Outcome{State: s}, nil
}
