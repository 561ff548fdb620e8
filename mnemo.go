// Package mnemo is a hybrid memory SDK for AI chat backends. It blends
// three memory tiers (in-process recent turns, periodic AI-generated
// session summaries, and an external vector store) to assemble context
// for each request while minimizing vector-search cost.
//
// Service is the caller-facing façade; the moving parts live in the
// memory package and are injectable for testing.
package mnemo

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mnemolabs/mnemo/llm"
	"github.com/mnemolabs/mnemo/memory"
)

const profileInstruction = "Extract durable facts about the user from this exchange " +
	"(preferences, relationships, ongoing projects). Reply with a short fact list, " +
	"or NONE if there is nothing durable.\n\n"

// Service is the caller-facing API of the memory system. Construct one
// at process start and share it; all state lives in the injected stores,
// so tests get isolation by constructing fresh instances.
type Service struct {
	sessions  *memory.SessionStore
	summaries *memory.SummaryStore
	uploads   *memory.UploadTracker
	vectors   memory.VectorStore
	gen       llm.Generator

	hybrid     *memory.Hybrid
	summarizer *memory.Summarizer
	scheduler  *memory.Scheduler

	sessionWindow  time.Duration
	summarizeAfter time.Duration
	retention      time.Duration
	tickInterval   time.Duration
	chunkSize      int
	now            func() time.Time
	profiles       bool
}

// Option configures the service.
type Option func(*Service)

// WithVectorStore attaches the long-term memory backend. Without one the
// service degrades to local-only memory.
func WithVectorStore(vs memory.VectorStore) Option {
	return func(s *Service) { s.vectors = vs }
}

// WithTickInterval sets the summarization tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) { s.tickInterval = d }
}

// WithSessionWindow sets the session-affinity idle gap.
func WithSessionWindow(d time.Duration) Option {
	return func(s *Service) { s.sessionWindow = d }
}

// WithSummarizeAfter sets how long a session must idle before it becomes
// eligible for summarization.
func WithSummarizeAfter(d time.Duration) Option {
	return func(s *Service) { s.summarizeAfter = d }
}

// WithRetention sets how long summarized sessions are kept before
// eviction.
func WithRetention(d time.Duration) Option {
	return func(s *Service) { s.retention = d }
}

// WithUploadChunkSize sets the bulk-sync batch size.
func WithUploadChunkSize(n int) Option {
	return func(s *Service) { s.chunkSize = n }
}

// WithServiceClock injects the time source used by every component.
func WithServiceClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithProfileExtraction enables the every-3rd-turn background profile
// task, which needs both a generator and a vector store.
func WithProfileExtraction() Option {
	return func(s *Service) { s.profiles = true }
}

// New wires the full memory system around the generator.
func New(gen llm.Generator, opts ...Option) *Service {
	s := &Service{
		summaries:      memory.NewSummaryStore(),
		uploads:        memory.NewUploadTracker(),
		gen:            gen,
		sessionWindow:  memory.DefaultSessionWindow,
		summarizeAfter: memory.DefaultSummarizeAfter,
		retention:      memory.DefaultRetention,
		tickInterval:   memory.DefaultTickInterval,
		chunkSize:      50,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	sessionOpts := []memory.SessionStoreOption{
		memory.WithClock(s.now),
		memory.WithSessionWindow(s.sessionWindow),
	}
	if s.profiles {
		sessionOpts = append(sessionOpts, memory.WithProfileFunc(s.extractProfile))
	}
	s.sessions = memory.NewSessionStore(sessionOpts...)

	topics := memory.NewTopicExtractor(gen)
	s.summarizer = memory.NewSummarizer(s.sessions, s.summaries, s.vectors, gen, topics,
		memory.WithSummarizerClock(s.now),
		memory.WithSummarizeAfter(s.summarizeAfter),
		memory.WithRetention(s.retention))
	s.scheduler = memory.NewScheduler(s.summarizer, s.tickInterval)
	s.hybrid = memory.NewHybrid(s.sessions, s.summaries, s.vectors,
		memory.WithHybridClock(s.now))
	return s
}

// Start launches the background summarization scheduler.
func (s *Service) Start() error {
	return s.scheduler.Start()
}

// Stop halts background work, draining any in-flight tick.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// AddTurn records one completed user/assistant exchange.
func (s *Service) AddTurn(userID, prompt, response, chatID string, image *memory.Image) memory.Turn {
	return s.sessions.AppendTurn(userID, prompt, response, chatID, image)
}

// Search runs the hybrid memory lookup for the query.
func (s *Service) Search(ctx context.Context, userID, query string, opts memory.SearchOptions) *memory.SearchResult {
	return s.hybrid.Search(ctx, userID, query, opts)
}

// RecentContext renders the user's most recent turns as prompt-ready
// text, newest first.
func (s *Service) RecentContext(userID string, maxTurns int) string {
	turns := s.sessions.RecentTurns(userID, maxTurns)
	if len(turns) == 0 {
		return ""
	}
	out := "=== RECENT CONVERSATIONS ===\n"
	for _, t := range turns {
		out += fmt.Sprintf("User: %s\nAI: %s\n", t.UserPrompt, t.AIResponse)
	}
	return out
}

// PersistChatNow forces summarization of the chat's current session,
// e.g. when the user switches away from it.
func (s *Service) PersistChatNow(ctx context.Context, userID, chatID string) error {
	return s.summarizer.PersistNow(ctx, userID, chatID)
}

// SyncChat bulk-uploads the chat's turns to the vector store, skipping
// everything already uploaded. Returns how many turns were sent.
func (s *Service) SyncChat(ctx context.Context, userID, chatID string) (int, error) {
	if s.vectors == nil {
		return 0, fmt.Errorf("no vector store configured")
	}

	turns := s.sessions.TurnsForChat(userID, chatID)
	byID := make(map[string]memory.Turn, len(turns))
	ids := make([]string, 0, len(turns))
	for _, t := range turns {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	pending := s.uploads.Pending(chatID, ids)
	if len(pending) == 0 {
		return 0, nil
	}

	recs := make([]memory.Record, 0, len(pending))
	for _, id := range pending {
		recs = append(recs, memory.NewTurnRecord(byID[id]))
	}
	if err := s.vectors.UpsertBatch(ctx, recs, s.chunkSize); err != nil {
		return 0, fmt.Errorf("sync chat %s: %w", chatID, err)
	}

	s.uploads.MarkUploaded(chatID, pending)
	return len(pending), nil
}

// ForgetChat clears the chat's upload history (forcing a full re-upload
// on the next sync) and deletes its turn records from long-term memory.
func (s *Service) ForgetChat(ctx context.Context, userID, chatID string) error {
	s.uploads.Clear(chatID)
	if s.vectors == nil {
		return nil
	}
	filter := map[string]string{
		"user_id": userID,
		"chat_id": chatID,
		"type":    memory.RecordTypeTurn,
	}
	if err := s.vectors.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("forget chat %s: %w", chatID, err)
	}
	return nil
}

// DebugInfo is the observability snapshot of the memory system.
type DebugInfo struct {
	Sessions           int
	SummarizedSessions int
	Turns              int
	Users              int
	Summaries          int
	SchedulerRunning   bool
}

// Debug reports store stats, for all users or one.
func (s *Service) Debug(userID string) DebugInfo {
	st := s.sessions.Stats(userID)
	return DebugInfo{
		Sessions:           st.Sessions,
		SummarizedSessions: st.Summarized,
		Turns:              st.Turns,
		Users:              st.Users,
		Summaries:          s.summaries.Len(),
		SchedulerRunning:   s.scheduler.IsRunning(),
	}
}

// Summarizer exposes the pipeline for callers that drive ticks
// themselves (tests, one-shot CLIs).
func (s *Service) Summarizer() *memory.Summarizer {
	return s.summarizer
}

// extractProfile is the fire-and-forget side task run on every 3rd turn.
func (s *Service) extractProfile(userID string, recent []memory.Turn) error {
	if s.vectors == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var transcript string
	for _, t := range recent {
		transcript += fmt.Sprintf("User: %s\nAI: %s\n", t.UserPrompt, t.AIResponse)
	}

	facts, err := s.gen.Generate(ctx, profileInstruction+transcript)
	if err != nil {
		return fmt.Errorf("extract profile: %w", err)
	}
	if facts == "" || facts == "NONE" {
		return nil
	}

	rec := memory.NewProfileRecord(userID, facts, s.now().UnixMilli())
	if err := s.vectors.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	log.Printf("[PROFILE] Stored profile facts for user=%s", userID)
	return nil
}
