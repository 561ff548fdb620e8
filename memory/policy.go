package memory

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Tier selects how aggressively the vector store is avoided.
type Tier string

const (
	// TierCostOptimized skips the vector search as soon as any local
	// context exists.
	TierCostOptimized Tier = "cost-optimized"

	// TierBalanced needs a little more local context before skipping.
	TierBalanced Tier = "balanced"

	// TierComprehensive always searches long-term memory (the sufficiency
	// rule never fires; the follow-up and freshness rules still can).
	TierComprehensive Tier = "comprehensive"
)

// DefaultFreshnessWindow is how recent the newest local turn must be for
// the query to be treated as a same-topic continuation.
const DefaultFreshnessWindow = 2 * time.Minute

// PolicyOptions tunes ShouldSkipVectorSearch. The zero value means
// balanced tier, current wall clock, default freshness window.
type PolicyOptions struct {
	// Disabled turns the optimization off entirely: never skip.
	Disabled bool

	// Tier picks the MinLocalResults default when MinLocalResults is 0.
	Tier Tier

	// MinLocalResults overrides the tier default when > 0.
	MinLocalResults int

	// FreshnessWindow overrides DefaultFreshnessWindow when > 0.
	FreshnessWindow time.Duration

	// Now anchors the freshness rule. Zero means time.Now(); tests pass
	// an explicit instant to keep the function pure.
	Now time.Time
}

// Decision is the outcome of the skip evaluation, with a human-readable
// reason for the observability surface.
type Decision struct {
	Skip   bool
	Reason string
}

// followUpMarkers are low-information phrases that signal the query
// continues the current topic rather than recalling an old one.
// Prefixes are matched at the start of the trimmed query; connectors are
// matched anywhere.
var (
	followUpPrefixes = []string{
		"thanks", "thank you", "ok", "okay", "cool", "great", "nice",
		"got it", "yes", "no", "yeah", "yep", "sure",
		"hi", "hello", "hey", "good morning", "good evening", "bye",
		"also", "and", "but", "so",
	}
	followUpConnectors = []string{
		"what about", "how about", "what else", "anything else",
	}
)

// ShouldSkipVectorSearch decides whether the long-term vector search can
// be skipped for this query given the local context already in hand.
//
// Pure function: no side effects, identical inputs yield identical
// decisions. Rules are evaluated in order; the first match wins:
//
//  1. optimization disabled        -> search
//  2. enough local results         -> skip
//  3. follow-up phrase + any turn  -> skip
//  4. newest turn is fresh         -> skip
//  5. otherwise                    -> search
func ShouldSkipVectorSearch(query string, localTurns []Turn, localSummaries []Summary, opts PolicyOptions) Decision {
	if opts.Disabled {
		return Decision{Skip: false, Reason: "optimization disabled by caller"}
	}

	minLocal := opts.MinLocalResults
	if minLocal <= 0 {
		switch opts.Tier {
		case TierCostOptimized:
			minLocal = 1
		case TierComprehensive:
			minLocal = math.MaxInt
		default: // TierBalanced and unset
			minLocal = 2
		}
	}

	localCount := len(localTurns) + len(localSummaries)
	if localCount >= minLocal {
		return Decision{
			Skip:   true,
			Reason: fmt.Sprintf("sufficient local context (%d results, needed %d)", localCount, minLocal),
		}
	}

	if len(localTurns) > 0 && isFollowUpQuery(query) {
		return Decision{
			Skip:   true,
			Reason: "low-information follow-up query with local context present",
		}
	}

	if len(localTurns) > 0 {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		window := opts.FreshnessWindow
		if window <= 0 {
			window = DefaultFreshnessWindow
		}
		newest := localTurns[0].Timestamp
		for _, t := range localTurns[1:] {
			if t.Timestamp > newest {
				newest = t.Timestamp
			}
		}
		age := now.UnixMilli() - newest
		if age >= 0 && age < window.Milliseconds() {
			return Decision{
				Skip:   true,
				Reason: fmt.Sprintf("same-topic continuation, last turn %ds ago", age/1000),
			}
		}
	}

	return Decision{
		Skip:   false,
		Reason: fmt.Sprintf("insufficient local context (%d results, needed %d)", localCount, minLocal),
	}
}

func isFollowUpQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range followUpPrefixes {
		if q == p || strings.HasPrefix(q, p+" ") || strings.HasPrefix(q, p+",") || strings.HasPrefix(q, p+"!") || strings.HasPrefix(q, p+".") {
			return true
		}
	}
	for _, c := range followUpConnectors {
		if strings.Contains(q, c) {
			return true
		}
	}
	return false
}
