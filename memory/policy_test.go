package memory_test

import (
	"strings"
	"testing"
	"time"

	"github.com/mnemolabs/mnemo/memory"
)

func TestPolicyIsPure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	turns := []memory.Turn{{ID: "t1", Timestamp: now.Add(-time.Hour).UnixMilli()}}
	opts := memory.PolicyOptions{MinLocalResults: 2, Now: now}

	first := memory.ShouldSkipVectorSearch("what did we discuss", turns, nil, opts)
	second := memory.ShouldSkipVectorSearch("what did we discuss", turns, nil, opts)
	if first != second {
		t.Fatalf("identical inputs gave different decisions: %+v vs %+v", first, second)
	}
}

func TestPolicyDisabledNeverSkips(t *testing.T) {
	turns := []memory.Turn{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}
	d := memory.ShouldSkipVectorSearch("thanks", turns, nil, memory.PolicyOptions{Disabled: true})
	if d.Skip {
		t.Fatalf("disabled optimization must never skip, got %+v", d)
	}
}

func TestPolicySufficientLocalContext(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour).UnixMilli()
	opts := memory.PolicyOptions{MinLocalResults: 2, Now: now}

	one := []memory.Turn{{ID: "t1", Timestamp: old}}
	if d := memory.ShouldSkipVectorSearch("tell me about the project", one, nil, opts); d.Skip {
		t.Fatalf("1 of 2 required results should search, got %+v", d)
	}

	two := append(one, memory.Turn{ID: "t2", Timestamp: old})
	if d := memory.ShouldSkipVectorSearch("tell me about the project", two, nil, opts); !d.Skip {
		t.Fatalf("2 of 2 required results should skip, got %+v", d)
	}

	// Summaries count toward the local total.
	sums := []memory.Summary{{SessionID: "s1"}}
	if d := memory.ShouldSkipVectorSearch("tell me about the project", one, sums, opts); !d.Skip {
		t.Fatalf("turn+summary should satisfy the threshold, got %+v", d)
	}
}

func TestPolicyTierDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour).UnixMilli()
	one := []memory.Turn{{ID: "t1", Timestamp: old}}

	if d := memory.ShouldSkipVectorSearch("q", one, nil, memory.PolicyOptions{Tier: memory.TierCostOptimized, Now: now}); !d.Skip {
		t.Fatalf("cost-optimized tier should skip with one local result, got %+v", d)
	}
	if d := memory.ShouldSkipVectorSearch("question about history", one, nil, memory.PolicyOptions{Tier: memory.TierComprehensive, Now: now}); d.Skip {
		t.Fatalf("comprehensive tier should not skip on sufficiency, got %+v", d)
	}
}

func TestPolicyFollowUpQuery(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour).UnixMilli()
	one := []memory.Turn{{ID: "t1", Timestamp: old}}
	opts := memory.PolicyOptions{MinLocalResults: 2, Now: now}

	d := memory.ShouldSkipVectorSearch("thanks", one, nil, opts)
	if !d.Skip {
		t.Fatalf("filler query with local context should skip, got %+v", d)
	}
	if !strings.Contains(d.Reason, "follow-up") {
		t.Fatalf("reason should mention follow-up, got %q", d.Reason)
	}

	// Without local context the filler rule does not apply.
	if d := memory.ShouldSkipVectorSearch("thanks", nil, nil, opts); d.Skip {
		t.Fatalf("filler query with no local context should search, got %+v", d)
	}
}

func TestPolicyFreshnessWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	opts := memory.PolicyOptions{MinLocalResults: 2, Now: now}

	fresh := []memory.Turn{{ID: "t1", Timestamp: now.UnixMilli() - 60_000}}
	if d := memory.ShouldSkipVectorSearch("new unrelated question", fresh, nil, opts); !d.Skip {
		t.Fatalf("60s-old turn should trigger the recency skip, got %+v", d)
	}

	stale := []memory.Turn{{ID: "t1", Timestamp: now.UnixMilli() - 500_000}}
	if d := memory.ShouldSkipVectorSearch("new unrelated question", stale, nil, opts); d.Skip {
		t.Fatalf("500s-old turn with no other trigger should search, got %+v", d)
	}
}
