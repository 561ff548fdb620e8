package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mnemolabs/mnemo/llm"
)

// DefaultSummarizeAfter is how long a session must sit idle before it
// becomes eligible for summarization.
const DefaultSummarizeAfter = 10 * time.Minute

const summaryInstruction = "Summarize the following conversation in 2-4 sentences. " +
	"Keep concrete facts, names, decisions and unresolved questions. " +
	"Reply with the summary only.\n\n"

// Summarizer promotes idle sessions into summaries and long-term vector
// records. One RunOnce call is one scheduler tick: summarize every
// eligible session, then evict old summarized ones.
//
// A session transitions to summarized only after the full pipeline
// succeeds (generate, topics, store, upsert). Any failure leaves it
// eligible; the next tick retries it at the fixed interval, no backoff.
type Summarizer struct {
	sessions  *SessionStore
	summaries *SummaryStore
	vectors   VectorStore
	gen       llm.Generator
	topics    *TopicExtractor

	summarizeAfter time.Duration
	retention      time.Duration
	now            func() time.Time
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithSummarizeAfter overrides the eligibility idle threshold.
func WithSummarizeAfter(d time.Duration) SummarizerOption {
	return func(s *Summarizer) { s.summarizeAfter = d }
}

// WithRetention overrides how long summarized sessions are retained.
func WithRetention(d time.Duration) SummarizerOption {
	return func(s *Summarizer) { s.retention = d }
}

// WithSummarizerClock injects the time source.
func WithSummarizerClock(now func() time.Time) SummarizerOption {
	return func(s *Summarizer) { s.now = now }
}

// NewSummarizer wires the pipeline. vectors may be nil (summaries stay
// local-only); gen must not be nil.
func NewSummarizer(sessions *SessionStore, summaries *SummaryStore, vectors VectorStore, gen llm.Generator, topics *TopicExtractor, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		sessions:       sessions,
		summaries:      summaries,
		vectors:        vectors,
		gen:            gen,
		topics:         topics,
		summarizeAfter: DefaultSummarizeAfter,
		retention:      DefaultRetention,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce is one full tick: summarize all eligible sessions, then run
// the eviction pass. Per-session failures are logged and skipped.
func (s *Summarizer) RunOnce(ctx context.Context) {
	eligible := s.sessions.IdleUnsummarized(s.summarizeAfter)
	if len(eligible) > 0 {
		log.Printf("[SUMMARIZER] Tick: %d eligible sessions", len(eligible))
	}
	for _, sess := range eligible {
		if err := s.summarizeSession(ctx, sess); err != nil {
			log.Printf("[SUMMARIZER] Session %s stays eligible: %v", sess.ID, err)
		}
	}

	if evicted := s.sessions.EvictOlderThan(s.retention); evicted > 0 {
		log.Printf("[SUMMARIZER] Evicted %d summarized sessions older than %s", evicted, s.retention)
	}
}

// PersistNow forces the summarization pipeline for one chat's current
// session, bypassing the idle threshold. Used when the user switches
// away from a chat, as a cost-saving alternative to summarizing on every
// message.
func (s *Summarizer) PersistNow(ctx context.Context, userID, chatID string) error {
	sess, ok := s.sessions.LatestUnsummarized(userID, chatID)
	if !ok {
		return fmt.Errorf("no unsummarized session for user=%s chat=%s", userID, chatID)
	}
	return s.summarizeSession(ctx, sess)
}

// summarizeSession runs the full pipeline for one session snapshot:
// transcript, generator, topics, summary store, vector upsert, mark.
// The snapshot is taken before the first suspension point; turns that
// arrive while the generator call is in flight are lost to this summary
// and land in a fresh session once this one is marked summarized.
func (s *Summarizer) summarizeSession(ctx context.Context, sess Session) error {
	if sess.Summarized {
		// Raced with another trigger (tick vs PersistNow); nothing to do.
		return nil
	}
	if len(sess.Turns) == 0 {
		return fmt.Errorf("session %s has no turns", sess.ID)
	}

	transcript := renderTranscript(sess.Turns)

	text, err := s.gen.Generate(ctx, summaryInstruction+transcript)
	if err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("generator returned empty summary")
	}

	sum := Summary{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		ChatID:    sess.ChatID,
		Summary:   text,
		KeyTopics: s.topics.Extract(ctx, transcript),
		TurnCount: len(sess.Turns),
		Timespan: Timespan{
			Start: sess.StartTime,
			End:   sess.LastActivity,
		},
		Timestamp: s.now().UnixMilli(),
	}
	s.summaries.Put(sum)

	if s.vectors != nil {
		if err := s.vectors.Upsert(ctx, NewSummaryRecord(sum)); err != nil {
			// Summary is already in the local store; Put overwrites on
			// retry, so leaving the session eligible is safe.
			return fmt.Errorf("upsert summary record: %w", err)
		}
	}

	s.sessions.MarkSummarized(sess.ID)
	log.Printf("[SUMMARIZER] Summarized session %s (%d turns, topics: %s)",
		sess.ID, sum.TurnCount, strings.Join(sum.KeyTopics, ", "))
	return nil
}

// renderTranscript flattens a session's turns into alternating
// "User:/AI:" lines for the generator.
func renderTranscript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("User: ")
		b.WriteString(t.UserPrompt)
		b.WriteString("\nAI: ")
		b.WriteString(t.AIResponse)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
