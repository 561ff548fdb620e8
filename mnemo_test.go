package mnemo_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	mnemo "github.com/mnemolabs/mnemo"
	"github.com/mnemolabs/mnemo/memory"
)

type stubGenerator struct {
	response string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.response, nil
}

type countingStore struct {
	mu      sync.Mutex
	upserts []memory.Record
	deletes []map[string]string
}

func (s *countingStore) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

func (s *countingStore) Upsert(ctx context.Context, rec memory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, rec)
	return nil
}

func (s *countingStore) UpsertBatch(ctx context.Context, recs []memory.Record, chunkSize int) error {
	for _, rec := range recs {
		if err := s.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *countingStore) Query(ctx context.Context, text string, topK int, filter map[string]string, threshold float32) ([]memory.Match, error) {
	return nil, nil
}

func (s *countingStore) DeleteOne(ctx context.Context, id string) error { return nil }

func (s *countingStore) DeleteMany(ctx context.Context, filter map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, filter)
	return nil
}

func (s *countingStore) Close() error { return nil }

func (s *countingStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

type stubClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(vs memory.VectorStore) (*mnemo.Service, *stubClock) {
	clock := &stubClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts := []mnemo.Option{mnemo.WithServiceClock(clock.Now)}
	if vs != nil {
		opts = append(opts, mnemo.WithVectorStore(vs))
	}
	svc := mnemo.New(&stubGenerator{response: "A short summary."}, opts...)
	return svc, clock
}

func TestAddTurnVisibleInRecentContext(t *testing.T) {
	svc, _ := newTestService(nil)

	turn := svc.AddTurn("user1", "remember my dog is called Rex", "noted", "chat1", nil)
	if turn.ID == "" {
		t.Fatalf("turn must get an id")
	}

	ctxText := svc.RecentContext("user1", 5)
	if !strings.Contains(ctxText, "Rex") {
		t.Fatalf("fresh turn missing from recent context:\n%s", ctxText)
	}

	res := svc.Search(context.Background(), "user1", "rex", memory.SearchOptions{
		DisableOptimization: true,
	})
	if len(res.LocalTurns) != 1 {
		t.Fatalf("fresh turn must be searchable immediately, got %d matches", len(res.LocalTurns))
	}
}

func TestSyncChatDeduplicates(t *testing.T) {
	vs := &countingStore{}
	svc, _ := newTestService(vs)
	ctx := context.Background()

	svc.AddTurn("user1", "first", "resp", "chat1", nil)
	svc.AddTurn("user1", "second", "resp", "chat1", nil)

	n, err := svc.SyncChat(ctx, "user1", "chat1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 2 {
		t.Fatalf("first sync uploaded %d, want 2", n)
	}

	n, err = svc.SyncChat(ctx, "user1", "chat1")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sync uploaded %d, want 0", n)
	}

	// One new turn uploads exactly the delta.
	svc.AddTurn("user1", "third", "resp", "chat1", nil)
	n, err = svc.SyncChat(ctx, "user1", "chat1")
	if err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if n != 1 {
		t.Fatalf("delta sync uploaded %d, want 1", n)
	}
	if vs.upsertCount() != 3 {
		t.Fatalf("store received %d upserts, want 3", vs.upsertCount())
	}
}

func TestSyncChatWithoutVectorStore(t *testing.T) {
	svc, _ := newTestService(nil)
	svc.AddTurn("user1", "first", "resp", "chat1", nil)

	if _, err := svc.SyncChat(context.Background(), "user1", "chat1"); err == nil {
		t.Fatalf("sync without a vector store should report an error")
	}
}

func TestForgetChatClearsHistoryAndDeletes(t *testing.T) {
	vs := &countingStore{}
	svc, _ := newTestService(vs)
	ctx := context.Background()

	svc.AddTurn("user1", "first", "resp", "chat1", nil)
	if _, err := svc.SyncChat(ctx, "user1", "chat1"); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if err := svc.ForgetChat(ctx, "user1", "chat1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if len(vs.deletes) != 1 {
		t.Fatalf("forget must delete the chat's records, got %d delete calls", len(vs.deletes))
	}
	if vs.deletes[0]["chat_id"] != "chat1" || vs.deletes[0]["type"] != memory.RecordTypeTurn {
		t.Fatalf("delete filter incomplete: %v", vs.deletes[0])
	}

	// Upload history is gone, so the turn syncs again.
	n, err := svc.SyncChat(ctx, "user1", "chat1")
	if err != nil {
		t.Fatalf("re-sync: %v", err)
	}
	if n != 1 {
		t.Fatalf("re-sync uploaded %d, want 1 after forget", n)
	}
}

func TestPersistChatNowSummarizes(t *testing.T) {
	vs := &countingStore{}
	svc, _ := newTestService(vs)
	ctx := context.Background()

	svc.AddTurn("user1", "plan the move", "start with boxes", "chat1", nil)

	if err := svc.PersistChatNow(ctx, "user1", "chat1"); err != nil {
		t.Fatalf("persist: %v", err)
	}

	info := svc.Debug("user1")
	if info.Summaries != 1 {
		t.Fatalf("summaries = %d, want 1", info.Summaries)
	}
	if info.SummarizedSessions != 1 {
		t.Fatalf("summarized sessions = %d, want 1", info.SummarizedSessions)
	}
	if vs.upsertCount() != 1 {
		t.Fatalf("summary record upserts = %d, want 1", vs.upsertCount())
	}
}

func TestSchedulerStartStop(t *testing.T) {
	svc, _ := newTestService(nil)

	if svc.Debug("").SchedulerRunning {
		t.Fatalf("scheduler must not run before Start")
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !svc.Debug("").SchedulerRunning {
		t.Fatalf("scheduler should report running after Start")
	}
	svc.Stop()
	if svc.Debug("").SchedulerRunning {
		t.Fatalf("scheduler should report stopped after Stop")
	}
}

func TestDebugCountsPerUser(t *testing.T) {
	svc, clock := newTestService(nil)

	svc.AddTurn("user1", "a", "b", "chat1", nil)
	svc.AddTurn("user1", "c", "d", "chat1", nil)
	clock.Advance(40 * time.Minute) // session window expires
	svc.AddTurn("user1", "e", "f", "chat1", nil)
	svc.AddTurn("user2", "x", "y", "chat9", nil)

	info := svc.Debug("user1")
	if info.Sessions != 2 || info.Turns != 3 {
		t.Fatalf("user1 stats = %+v, want 2 sessions / 3 turns", info)
	}

	all := svc.Debug("")
	if all.Users != 2 || all.Turns != 4 {
		t.Fatalf("global stats = %+v, want 2 users / 4 turns", all)
	}
}
