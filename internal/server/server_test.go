package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaeenbot/constitution-agent/internal/agent"
	"github.com/aaeenbot/constitution-agent/internal/checkpoint"
)

type fakeLLM struct {
	intent string
	reply  string
	calls  int
}

func (f *fakeLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.calls == 1 {
		return f.intent, nil
	}
	return f.reply, nil
}

type fakeKnowledgeStore struct {
	passages []agent.Passage
	appends  []string
}

func (f *fakeKnowledgeStore) Search(ctx context.Context, query string, k int) ([]agent.Passage, error) {
	if k > len(f.passages) {
		k = len(f.passages)
	}
	return f.passages[:k], nil
}

func (f *fakeKnowledgeStore) Append(ctx context.Context, content, source string) error {
	f.appends = append(f.appends, content)
	return nil
}

func (f *fakeKnowledgeStore) IsEmpty(ctx context.Context) (bool, error) {
	return len(f.passages) == 0, nil
}

func newTestServer(llm agent.Completer, store agent.KnowledgeStore) *Server {
	engine := agent.NewEngine(llm, store, checkpoint.NewMemoryStore(), 3)
	return New(engine, store, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, turnResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp turnResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	}
	return rec, resp
}

func TestStartGreetingTurn(t *testing.T) {
	s := newTestServer(&fakeLLM{intent: "GREETING", reply: "Hello! How can I help?"}, &fakeKnowledgeStore{})

	rec, resp := doJSON(t, s, "POST", "/conversations", startRequest{Message: "Hello!"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotEmpty(t, resp.ConversationID, "a conversation ID is generated when omitted")
	assert.Equal(t, agent.StatusCompleted, resp.Status)
	assert.Equal(t, "Hello! How can I help?", resp.Reply)
	assert.Nil(t, resp.Suspended)
}

func TestStartRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(&fakeLLM{intent: "GREETING"}, &fakeKnowledgeStore{})

	rec, _ := doJSON(t, s, "POST", "/conversations", startRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAmendmentSuspendAndResume(t *testing.T) {
	store := &fakeKnowledgeStore{}
	s := newTestServer(&fakeLLM{intent: "AMEND", reply: "Article 19B: digital privacy."}, store)

	rec, resp := doJSON(t, s, "POST", "/conversations", startRequest{
		ConversationID: "conv-http",
		Message:        "Please add a clause about digital privacy",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, agent.StatusAwaitingDecision, resp.Status)
	require.NotNil(t, resp.Suspended)
	assert.Equal(t, "Approve this amendment?", resp.Suspended.Question)
	assert.Equal(t, "Article 19B: digital privacy.", resp.Suspended.Draft)
	assert.Empty(t, store.appends)

	t.Run("new turn while suspended conflicts", func(t *testing.T) {
		rec, _ := doJSON(t, s, "POST", "/conversations", startRequest{
			ConversationID: "conv-http",
			Message:        "What is Article 8?",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("resume applies the amendment", func(t *testing.T) {
		rec, resp := doJSON(t, s, "POST", "/conversations/conv-http/resume", resumeRequest{Decision: "yes"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, agent.StatusCompleted, resp.Status)
		assert.Equal(t, "Amendment approved and saved to the constitution.", resp.Reply)
		require.Len(t, store.appends, 1)
		assert.Equal(t, "Article 19B: digital privacy.", store.appends[0])
	})

	t.Run("second resume conflicts and does not reapply", func(t *testing.T) {
		rec, _ := doJSON(t, s, "POST", "/conversations/conv-http/resume", resumeRequest{Decision: "yes"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Len(t, store.appends, 1)
	})
}

func TestResumeRejectsByDefault(t *testing.T) {
	store := &fakeKnowledgeStore{}
	s := newTestServer(&fakeLLM{intent: "AMEND", reply: "draft text"}, store)

	rec, _ := doJSON(t, s, "POST", "/conversations", startRequest{
		ConversationID: "conv-default",
		Message:        "amend something",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Empty body: no decision supplied, which must reject, not approve.
	req := httptest.NewRequest("POST", "/conversations/conv-default/resume", nil)
	rec2 := httptest.NewRecorder()
	s.router.ServeHTTP(rec2, req)

	require.Equal(t, http.StatusOK, rec2.Code)
	var resp turnResponse
	require.NoError(t, json.NewDecoder(rec2.Body).Decode(&resp))
	assert.Equal(t, "Amendment rejected. No changes were made.", resp.Reply)
	assert.Empty(t, store.appends)
}

func TestResumeUnknownConversation(t *testing.T) {
	s := newTestServer(&fakeLLM{}, &fakeKnowledgeStore{})

	rec, _ := doJSON(t, s, "POST", "/conversations/no-such/resume", resumeRequest{Decision: "yes"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("healthy without a ping", func(t *testing.T) {
		s := newTestServer(&fakeLLM{}, &fakeKnowledgeStore{})
		req := httptest.NewRequest("GET", "/health", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unhealthy when the ping fails", func(t *testing.T) {
		engine := agent.NewEngine(&fakeLLM{}, &fakeKnowledgeStore{}, checkpoint.NewMemoryStore(), 3)
		s := New(engine, &fakeKnowledgeStore{}, func(ctx context.Context) error {
			return context.DeadlineExceeded
		})
		req := httptest.NewRequest("GET", "/health", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
