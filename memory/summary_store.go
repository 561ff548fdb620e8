package memory

import (
	"sort"
	"sync"
)

// SummaryStore holds summaries of closed sessions, keyed by session id.
// Append-mostly; summaries are never evicted at this layer.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries map[string]Summary // by session id
}

func NewSummaryStore() *SummaryStore {
	return &SummaryStore{summaries: make(map[string]Summary)}
}

// Put stores or overwrites the summary for its session.
func (s *SummaryStore) Put(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.SessionID] = sum
}

// Get returns the summary for a session, if any.
func (s *SummaryStore) Get(sessionID string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[sessionID]
	return sum, ok
}

// ForUser returns a user's summaries, newest first.
func (s *SummaryStore) ForUser(userID string) []Summary {
	s.mu.RLock()
	var out []Summary
	for _, sum := range s.summaries {
		if sum.UserID == userID {
			out = append(out, sum)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Len reports the total number of stored summaries.
func (s *SummaryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries)
}
