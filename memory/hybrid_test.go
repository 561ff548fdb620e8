package memory_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mnemolabs/mnemo/memory"
)

func newTestHybrid(clock *fakeClock, vectors *fakeVectorStore) (*memory.Hybrid, *memory.SessionStore, *memory.SummaryStore) {
	sessions := memory.NewSessionStore(memory.WithClock(clock.Now))
	summaries := memory.NewSummaryStore()
	var vs memory.VectorStore
	if vectors != nil {
		vs = vectors
	}
	h := memory.NewHybrid(sessions, summaries, vs, memory.WithHybridClock(clock.Now))
	return h, sessions, summaries
}

func TestHybridSearchLocalOnly(t *testing.T) {
	clock := newFakeClock()
	h, sessions, _ := newTestHybrid(clock, &fakeVectorStore{})

	sessions.AppendTurn("user1", "tell me about kubernetes", "it orchestrates containers", "chat1", nil)
	clock.Advance(5 * time.Minute)

	res := h.Search(context.Background(), "user1", "kubernetes", memory.SearchOptions{
		Tier: memory.TierComprehensive, // never skip for local sufficiency
	})

	if len(res.LocalTurns) != 1 {
		t.Fatalf("expected 1 local turn, got %d", len(res.LocalTurns))
	}
	if res.Type != memory.ResultLocal {
		t.Fatalf("type = %q, want %q when long-term is empty", res.Type, memory.ResultLocal)
	}
	if !strings.Contains(res.CombinedContext, "=== RECENT CONVERSATIONS ===") {
		t.Fatalf("context missing recent section:\n%s", res.CombinedContext)
	}
	if strings.Contains(res.CombinedContext, "LONG-TERM") {
		t.Fatalf("empty long-term tier must not render a section")
	}
}

func TestHybridSearchMergesTiers(t *testing.T) {
	clock := newFakeClock()
	vectors := &fakeVectorStore{
		matches: []memory.Match{{
			ID:      "summary_old",
			Score:   0.82,
			Content: "User planned a trip to Japan last spring.",
			Metadata: map[string]string{
				"timestamp": fmt.Sprintf("%d", clock.Now().Add(-3*24*time.Hour).UnixMilli()),
			},
		}},
	}
	h, sessions, _ := newTestHybrid(clock, vectors)

	sessions.AppendTurn("user1", "what about japan again", "you went in spring", "chat1", nil)
	clock.Advance(5 * time.Minute)

	res := h.Search(context.Background(), "user1", "japan", memory.SearchOptions{
		Tier: memory.TierComprehensive,
	})

	if res.Type != memory.ResultHybrid {
		t.Fatalf("type = %q, want %q when both tiers have results", res.Type, memory.ResultHybrid)
	}
	if res.ResultCount != 2 {
		t.Fatalf("result count = %d, want 2", res.ResultCount)
	}

	// Local section must come before long-term, divided.
	locIdx := strings.Index(res.CombinedContext, "=== RECENT CONVERSATIONS ===")
	ltIdx := strings.Index(res.CombinedContext, "=== LONG-TERM MEMORIES ===")
	if locIdx < 0 || ltIdx < 0 || locIdx > ltIdx {
		t.Fatalf("sections missing or out of order:\n%s", res.CombinedContext)
	}
	if !strings.Contains(res.CombinedContext, "\n\n---\n\n") {
		t.Fatalf("sections must be divided:\n%s", res.CombinedContext)
	}
	if !strings.Contains(res.CombinedContext, "(this week, 82% match)") {
		t.Fatalf("long-term entry missing recency and confidence:\n%s", res.CombinedContext)
	}
}

func TestHybridSearchLongTermOnly(t *testing.T) {
	clock := newFakeClock()
	vectors := &fakeVectorStore{
		matches: []memory.Match{{ID: "m1", Score: 0.7, Content: "old fact", Metadata: map[string]string{}}},
	}
	h, _, _ := newTestHybrid(clock, vectors)

	res := h.Search(context.Background(), "user1", "anything", memory.SearchOptions{})
	if res.Type != memory.ResultLongTerm {
		t.Fatalf("type = %q, want %q", res.Type, memory.ResultLongTerm)
	}
	if !strings.Contains(res.CombinedContext, "(some time ago, 70% match) old fact") {
		t.Fatalf("missing timestamp should fall back to a vague label:\n%s", res.CombinedContext)
	}
}

func TestHybridSearchVectorFailureDegradesToLocal(t *testing.T) {
	clock := newFakeClock()
	vectors := &fakeVectorStore{queryErr: fmt.Errorf("chromem unavailable")}
	h, sessions, _ := newTestHybrid(clock, vectors)

	sessions.AppendTurn("user1", "remember the budget talk", "yes, groceries", "chat1", nil)
	clock.Advance(5 * time.Minute)

	res := h.Search(context.Background(), "user1", "budget", memory.SearchOptions{
		Tier: memory.TierComprehensive,
	})

	if len(res.LongTerm) != 0 {
		t.Fatalf("failed query must yield empty long-term results")
	}
	if res.Type != memory.ResultLocal {
		t.Fatalf("type = %q, want local after a degraded query", res.Type)
	}
	if len(res.LocalTurns) != 1 {
		t.Fatalf("local results must survive the failure")
	}
}

func TestHybridSearchPolicySkip(t *testing.T) {
	clock := newFakeClock()
	vectors := &fakeVectorStore{
		matches: []memory.Match{{ID: "m1", Score: 0.9, Content: "should not appear"}},
	}
	h, sessions, _ := newTestHybrid(clock, vectors)

	// Two fresh-enough local matches satisfy the balanced tier.
	sessions.AppendTurn("user1", "python errors everywhere", "let's fix them", "chat1", nil)
	sessions.AppendTurn("user1", "more python errors", "still fixing", "chat1", nil)
	clock.Advance(5 * time.Minute)

	res := h.Search(context.Background(), "user1", "python", memory.SearchOptions{})
	if !res.Optimization.SkippedVectorSearch {
		t.Fatalf("two local matches on the balanced tier should skip the vector query")
	}
	if res.Optimization.Reason == "" {
		t.Fatalf("skip decisions must carry a reason")
	}
	if len(res.LongTerm) != 0 {
		t.Fatalf("skipped query must not return long-term matches")
	}
	if res.Type != memory.ResultLocal {
		t.Fatalf("type = %q, want local when the query was skipped", res.Type)
	}

	// Disabling optimization forces the query through.
	res = h.Search(context.Background(), "user1", "python", memory.SearchOptions{DisableOptimization: true})
	if res.Optimization.SkippedVectorSearch {
		t.Fatalf("disabled optimization must never skip")
	}
	if len(res.LongTerm) != 1 {
		t.Fatalf("expected the vector match when forced, got %d", len(res.LongTerm))
	}
}

func TestHybridSearchSummariesCappedInContext(t *testing.T) {
	clock := newFakeClock()
	h, _, summaries := newTestHybrid(clock, nil)

	for i := 0; i < 5; i++ {
		summaries.Put(memory.Summary{
			SessionID: fmt.Sprintf("session_%d", i),
			UserID:    "user1",
			Summary:   fmt.Sprintf("summary number %d", i),
			KeyTopics: []string{"general"},
			Timestamp: clock.Now().UnixMilli() + int64(i),
		})
	}

	res := h.Search(context.Background(), "user1", "nothing matches", memory.SearchOptions{
		IncludeSummaries: true,
		Tier:             memory.TierComprehensive,
	})

	if len(res.LocalSummaries) != 5 {
		t.Fatalf("result should expose all summaries, got %d", len(res.LocalSummaries))
	}
	rendered := strings.Count(res.CombinedContext, "summary number")
	if rendered != 3 {
		t.Fatalf("context should render at most 3 summaries, rendered %d", rendered)
	}
	// Newest first.
	if !strings.Contains(res.CombinedContext, "summary number 4") {
		t.Fatalf("newest summary missing from context:\n%s", res.CombinedContext)
	}
}
