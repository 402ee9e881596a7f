package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aaeenbot/constitution-agent/internal/agent"
)

// Prometheus metrics
var (
	turnRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_turn_requests_total",
			Help: "Total number of conversation turn requests",
		},
		[]string{"endpoint", "status"},
	)
	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "agent_turn_duration_seconds",
			Help: "Duration of conversation turn requests",
		},
		[]string{"endpoint"},
	)
	amendmentDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_amendment_decisions_total",
			Help: "Total number of resumed amendment decisions",
		},
		[]string{"decision"},
	)
	passagesStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_passages_stored_total",
			Help: "Total number of passages in the knowledge store",
		},
	)
)

func init() {
	prometheus.MustRegister(turnRequestsTotal)
	prometheus.MustRegister(turnDuration)
	prometheus.MustRegister(amendmentDecisionsTotal)
	prometheus.MustRegister(passagesStored)
}

// PassageCounter is implemented by knowledge stores that can report their
// size for the metrics loop.
type PassageCounter interface {
	Count(ctx context.Context) (int, error)
}

// Server exposes the workflow boundary over HTTP.
type Server struct {
	engine *agent.Engine
	store  agent.KnowledgeStore
	ping   func(context.Context) error
	router *mux.Router
}

// New builds the HTTP boundary. ping is an optional backing-store health
// check; pass nil to report healthy unconditionally.
func New(engine *agent.Engine, store agent.KnowledgeStore, ping func(context.Context) error) *Server {
	s := &Server{engine: engine, store: store, ping: ping}

	router := mux.NewRouter()
	router.HandleFunc("/conversations", s.handleStartConversation).Methods("POST")
	router.HandleFunc("/conversations/{id}/resume", s.handleResumeConversation).Methods("POST")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())
	s.router = router

	return s
}

// Router returns the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

type startRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type resumeRequest struct {
	Decision any `json:"decision"`
}

type turnResponse struct {
	ConversationID string           `json:"conversation_id"`
	Status         agent.Status     `json:"status"`
	Reply          string           `json:"reply,omitempty"`
	Suspended      *agent.Interrupt `json:"suspended,omitempty"`
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		turnDuration.WithLabelValues("start").Observe(time.Since(start).Seconds())
	}()

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		turnRequestsTotal.WithLabelValues("start", "error").Inc()
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		turnRequestsTotal.WithLabelValues("start", "error").Inc()
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	outcome, err := s.engine.Start(r.Context(), req.ConversationID, agent.Message{
		Role: agent.RoleUser,
		Text: req.Message,
	})
	if err != nil {
		turnRequestsTotal.WithLabelValues("start", "error").Inc()
		if errors.Is(err, agent.ErrAwaitingDecision) {
			http.Error(w, "Conversation is awaiting an approval decision", http.StatusConflict)
			return
		}
		log.Printf("start turn failed (conversation %s): %v", req.ConversationID, err)
		http.Error(w, "Failed to process turn", http.StatusInternalServerError)
		return
	}

	turnRequestsTotal.WithLabelValues("start", "success").Inc()
	writeJSONResponse(w, turnResponse{
		ConversationID: outcome.State.ConversationID,
		Status:         outcome.State.Status,
		Reply:          outcome.State.LastReply(),
		Suspended:      outcome.Suspended,
	})
}

func (s *Server) handleResumeConversation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		turnDuration.WithLabelValues("resume").Observe(time.Since(start).Seconds())
	}()

	conversationID := mux.Vars(r)["id"]

	// A missing or malformed body leaves Decision nil, which rejects.
	// Ambiguous input must never approve, so this is not a client error.
	var req resumeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	outcome, err := s.engine.Resume(r.Context(), conversationID, req.Decision)
	if err != nil {
		turnRequestsTotal.WithLabelValues("resume", "error").Inc()
		switch {
		case errors.Is(err, agent.ErrConversationNotFound):
			http.Error(w, "Conversation not found", http.StatusNotFound)
		case errors.Is(err, agent.ErrNotSuspended):
			http.Error(w, "Conversation is not awaiting a decision", http.StatusConflict)
		default:
			log.Printf("resume failed (conversation %s): %v", conversationID, err)
			http.Error(w, "Failed to process decision", http.StatusInternalServerError)
		}
		return
	}

	decision := "rejected"
	if outcome.State.Approval != nil && *outcome.State.Approval {
		decision = "approved"
	}
	amendmentDecisionsTotal.WithLabelValues(decision).Inc()

	turnRequestsTotal.WithLabelValues("resume", "success").Inc()
	writeJSONResponse(w, turnResponse{
		ConversationID: outcome.State.ConversationID,
		Status:         outcome.State.Status,
		Reply:          outcome.State.LastReply(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			http.Error(w, "Backing store connection failed", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSONResponse(w, map[string]string{"status": "healthy"})
}

// Run serves until SIGINT/SIGTERM, then drains for up to 30 seconds.
func (s *Server) Run(port string) error {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}

	go s.updateMetrics()

	go func() {
		log.Printf("Constitution agent starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	log.Println("Server exited")
	return nil
}

func (s *Server) updateMetrics() {
	counter, ok := s.store.(PassageCounter)
	if !ok {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		count, err := counter.Count(context.Background())
		if err == nil {
			passagesStored.Set(float64(count))
		}
	}
}

func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
