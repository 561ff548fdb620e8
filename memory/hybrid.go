package memory

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Result types reported by Hybrid.Search.
const (
	ResultLocal    = "local"
	ResultLongTerm = "long-term"
	ResultHybrid   = "hybrid"
)

const (
	defaultLocalLimit = 5
	defaultTopK       = 5
	defaultThreshold  = 0.5

	maxSummariesInContext = 3
	summaryTruncateLen    = 300

	contextDivider = "\n\n---\n\n"
)

// SearchOptions tunes one hybrid search.
type SearchOptions struct {
	// Limit caps local turn matches. Default 5.
	Limit int

	// IncludeSummaries adds the summary tier to the local context.
	IncludeSummaries bool

	// TopK and Threshold shape the vector query. Defaults 5 and 0.5.
	TopK      int
	Threshold float32

	// Tier / MinLocalResults / DisableOptimization feed the cost policy.
	Tier                Tier
	MinLocalResults     int
	DisableOptimization bool
}

// Optimization records what the cost policy decided, for observability.
type Optimization struct {
	SkippedVectorSearch bool
	Reason              string
}

// SearchResult is the merged outcome of one hybrid search.
type SearchResult struct {
	Type            string // local / long-term / hybrid
	LocalTurns      []Turn
	LocalSummaries  []Summary
	LongTerm        []Match
	CombinedContext string
	ResultCount     int
	Optimization    Optimization
}

// Hybrid is the query-time orchestrator: local turn search, summary
// lookup, cost-policy decision, conditional vector query, and a single
// ranked context blob for prompt injection.
type Hybrid struct {
	sessions  *SessionStore
	summaries *SummaryStore
	vectors   VectorStore
	now       func() time.Time
}

// HybridOption configures a Hybrid.
type HybridOption func(*Hybrid)

// WithHybridClock injects the time source.
func WithHybridClock(now func() time.Time) HybridOption {
	return func(h *Hybrid) { h.now = now }
}

// NewHybrid wires the orchestrator. vectors may be nil; searches then
// always degrade to local-only.
func NewHybrid(sessions *SessionStore, summaries *SummaryStore, vectors VectorStore, opts ...HybridOption) *Hybrid {
	h := &Hybrid{
		sessions:  sessions,
		summaries: summaries,
		vectors:   vectors,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Search runs the hybrid lookup. It never fails the caller: vector-store
// errors (and cancellations) are logged and treated as empty long-term
// results, so the worst case is a local-only answer.
func (h *Hybrid) Search(ctx context.Context, userID, query string, opts SearchOptions) *SearchResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLocalLimit
	}

	res := &SearchResult{
		LocalTurns: h.sessions.SearchTurns(userID, query, limit),
	}
	if opts.IncludeSummaries {
		res.LocalSummaries = h.summaries.ForUser(userID)
	}

	decision := ShouldSkipVectorSearch(query, res.LocalTurns, res.LocalSummaries, PolicyOptions{
		Disabled:        opts.DisableOptimization,
		Tier:            opts.Tier,
		MinLocalResults: opts.MinLocalResults,
		Now:             h.now(),
	})
	res.Optimization = Optimization{
		SkippedVectorSearch: decision.Skip,
		Reason:              decision.Reason,
	}

	if !decision.Skip && h.vectors != nil {
		topK := opts.TopK
		if topK <= 0 {
			topK = defaultTopK
		}
		threshold := opts.Threshold
		if threshold <= 0 {
			threshold = defaultThreshold
		}
		matches, err := h.vectors.Query(ctx, query, topK, map[string]string{"user_id": userID}, threshold)
		if err != nil {
			log.Printf("[MEMORY] Long-term search failed, continuing local-only: %v", err)
		} else {
			res.LongTerm = matches
		}
	}

	res.Type = classify(res)
	res.ResultCount = len(res.LocalTurns) + len(res.LocalSummaries) + len(res.LongTerm)
	res.CombinedContext = h.renderContext(res)
	return res
}

// classify labels the result by which tiers contributed. Local wins
// whenever long-term is empty.
func classify(res *SearchResult) string {
	local := len(res.LocalTurns)+len(res.LocalSummaries) > 0
	long := len(res.LongTerm) > 0
	switch {
	case local && long:
		return ResultHybrid
	case long:
		return ResultLongTerm
	default:
		return ResultLocal
	}
}

// renderContext assembles the prioritized context blob: recent
// conversations first, then summaries, then long-term matches, each
// section separated by a visible divider.
func (h *Hybrid) renderContext(res *SearchResult) string {
	var sections []string

	if len(res.LocalTurns) > 0 {
		var b strings.Builder
		b.WriteString("=== RECENT CONVERSATIONS ===\n")
		for _, t := range res.LocalTurns {
			fmt.Fprintf(&b, "User: %s\nAI: %s\n", t.UserPrompt, t.AIResponse)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if len(res.LocalSummaries) > 0 {
		var b strings.Builder
		b.WriteString("=== CONVERSATION SUMMARIES ===\n")
		for i, sum := range res.LocalSummaries {
			if i >= maxSummariesInContext {
				break
			}
			fmt.Fprintf(&b, "[%s] %s\n", strings.Join(sum.KeyTopics, ", "), truncate(sum.Summary, summaryTruncateLen))
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if len(res.LongTerm) > 0 {
		now := h.now().UnixMilli()
		var b strings.Builder
		b.WriteString("=== LONG-TERM MEMORIES ===\n")
		for _, m := range res.LongTerm {
			fmt.Fprintf(&b, "(%s, %d%% match) %s\n", recencyLabel(m.Metadata["timestamp"], now), int(m.Score*100), m.Content)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(sections, contextDivider)
}

// recencyLabel buckets a millisecond timestamp into a human label.
func recencyLabel(tsField string, nowMillis int64) string {
	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil || ts == 0 {
		return "some time ago"
	}
	age := time.Duration(nowMillis-ts) * time.Millisecond
	switch {
	case age < 24*time.Hour:
		return "today"
	case age < 48*time.Hour:
		return "yesterday"
	case age < 7*24*time.Hour:
		return "this week"
	case age < 30*24*time.Hour:
		return "this month"
	default:
		return "a while back"
	}
}

// truncate shortens a string to maxLen, adding "..." when cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
