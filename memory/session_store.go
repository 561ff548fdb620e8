package memory

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSessionWindow is the idle gap after which a new turn starts a
	// fresh session even for the same chat.
	DefaultSessionWindow = 30 * time.Minute

	// DefaultRetention is how long summarized sessions linger before the
	// eviction pass frees them.
	DefaultRetention = 7 * 24 * time.Hour

	// searchScanLimit bounds substring search to the most recent turns.
	// Anything older is expected to surface via summaries or the vector
	// store, not the in-process scan.
	searchScanLimit = 50

	// profileTurnStride is how often the profile-extraction side task
	// fires within a session.
	profileTurnStride = 3
)

// ProfileFunc is the fire-and-forget side task invoked on every
// profileTurnStride-th turn of a session. Errors are logged, never
// surfaced to the turn's caller.
type ProfileFunc func(userID string, recent []Turn) error

// SessionStore holds per-user sessions and turns in memory and owns the
// session lifecycle: lazy creation, 30-minute affinity, summarized
// marking and retention-based eviction.
//
// The store is a cache in front of the durable vector store; losing it on
// process restart is accepted.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // by session id

	window      time.Duration
	now         func() time.Time
	profileFunc ProfileFunc
	spawn       func(func()) // background task launcher, swapped in tests
}

// SessionStoreOption configures a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionWindow overrides the session-affinity window.
func WithSessionWindow(d time.Duration) SessionStoreOption {
	return func(s *SessionStore) { s.window = d }
}

// WithClock injects the time source. Used by tests to avoid wall-clock
// waits.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) { s.now = now }
}

// WithProfileFunc sets the profile-extraction side task.
func WithProfileFunc(f ProfileFunc) SessionStoreOption {
	return func(s *SessionStore) { s.profileFunc = f }
}

// WithSpawn overrides how background side tasks are launched.
// The default launches a goroutine; tests inject a synchronous runner.
func WithSpawn(spawn func(func())) SessionStoreOption {
	return func(s *SessionStore) { s.spawn = spawn }
}

// NewSessionStore creates an empty session store.
func NewSessionStore(opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		window:   DefaultSessionWindow,
		now:      time.Now,
		spawn:    func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendTurn resolves or creates the active session for (userID, chatID),
// appends a new turn and bumps the session's last activity. The returned
// Turn is a copy.
func (s *SessionStore) AppendTurn(userID, prompt, response, chatID string, image *Image) Turn {
	s.mu.Lock()

	now := s.now()
	sess := s.activeSessionLocked(userID, chatID)
	if sess == nil {
		sess = &Session{
			ID:        newSessionID(userID, chatID, now),
			UserID:    userID,
			ChatID:    chatID,
			StartTime: now.UnixMilli(),
		}
		s.sessions[sess.ID] = sess
		log.Printf("[MEMORY] New session %s for user=%s chat=%s", sess.ID, userID, chatID)
	}

	ts := now.UnixMilli()
	// Timestamps are non-decreasing within a session.
	if n := len(sess.Turns); n > 0 && ts < sess.Turns[n-1].Timestamp {
		ts = sess.Turns[n-1].Timestamp
	}

	turn := Turn{
		ID:         newTurnID(),
		UserID:     userID,
		ChatID:     chatID,
		UserPrompt: prompt,
		AIResponse: response,
		Timestamp:  ts,
	}
	if image != nil {
		turn.ImageURL = image.URL
		turn.ImagePrompt = image.Prompt
		turn.HasImage = true
	}

	sess.Turns = append(sess.Turns, turn)
	sess.LastActivity = ts

	var sideTask func()
	if s.profileFunc != nil && len(sess.Turns)%profileTurnStride == 0 {
		recent := make([]Turn, profileTurnStride)
		copy(recent, sess.Turns[len(sess.Turns)-profileTurnStride:])
		f := s.profileFunc
		sideTask = func() {
			if err := f(userID, recent); err != nil {
				log.Printf("[MEMORY] Profile extraction failed for user=%s: %v", userID, err)
			}
		}
	}
	s.mu.Unlock()

	if sideTask != nil {
		s.spawn(sideTask)
	}
	return turn
}

// ActiveSessionID returns the session id that a turn for (userID, chatID)
// would land in right now, minting a fresh id when no session is within
// the affinity window.
func (s *SessionStore) ActiveSessionID(userID, chatID string) string {
	s.mu.RLock()
	sess := s.activeSessionLocked(userID, chatID)
	s.mu.RUnlock()
	if sess != nil {
		return sess.ID
	}
	return newSessionID(userID, chatID, s.now())
}

// activeSessionLocked is the session-affinity lookup: the most recently
// active non-summarized session for the pair whose last activity is
// within the window. Linear scan; fine at hundreds of sessions.
func (s *SessionStore) activeSessionLocked(userID, chatID string) *Session {
	cutoff := s.now().Add(-s.window).UnixMilli()
	var best *Session
	for _, sess := range s.sessions {
		if sess.UserID != userID || sess.ChatID != chatID || sess.Summarized {
			continue
		}
		if sess.LastActivity < cutoff {
			continue
		}
		if best == nil || sess.LastActivity > best.LastActivity {
			best = sess
		}
	}
	return best
}

// RecentTurns returns all of a user's turns across sessions, newest
// first, truncated to limit.
func (s *SessionStore) RecentTurns(userID string, limit int) []Turn {
	s.mu.RLock()
	var out []Turn
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		out = append(out, sess.Turns...)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SearchTurns does a case-insensitive substring match of query against
// prompt or response over the user's most recent turns. It scans at most
// searchScanLimit turns and returns up to limit matches in recency order.
func (s *SessionStore) SearchTurns(userID, query string, limit int) []Turn {
	q := strings.ToLower(query)
	var out []Turn
	for _, t := range s.RecentTurns(userID, searchScanLimit) {
		if strings.Contains(strings.ToLower(t.UserPrompt), q) ||
			strings.Contains(strings.ToLower(t.AIResponse), q) {
			out = append(out, t)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// TurnsForChat returns copies of all turns of a user's chat, oldest first.
func (s *SessionStore) TurnsForChat(userID, chatID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Turn
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.ChatID == chatID {
			out = append(out, sess.Turns...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// IdleUnsummarized returns copies of sessions with at least one turn that
// have not been summarized and have been idle for longer than idle.
func (s *SessionStore) IdleUnsummarized(idle time.Duration) []Session {
	cutoff := s.now().Add(-idle).UnixMilli()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Session
	for _, sess := range s.sessions {
		if !sess.Summarized && len(sess.Turns) > 0 && sess.LastActivity < cutoff {
			out = append(out, sess.clone())
		}
	}
	return out
}

// LatestUnsummarized returns a copy of the most recently active
// unsummarized session for (userID, chatID), regardless of idle time.
// Used by the explicit persist-now path.
func (s *SessionStore) LatestUnsummarized(userID, chatID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *Session
	for _, sess := range s.sessions {
		if sess.UserID != userID || sess.ChatID != chatID || sess.Summarized || len(sess.Turns) == 0 {
			continue
		}
		if best == nil || sess.LastActivity > best.LastActivity {
			best = sess
		}
	}
	if best == nil {
		return Session{}, false
	}
	return best.clone(), true
}

// MarkSummarized flips the session's summarized flag. Idempotent; unknown
// ids are ignored.
func (s *SessionStore) MarkSummarized(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.Summarized = true
	}
}

// EvictOlderThan removes summarized sessions idle for longer than
// retention and reports how many were freed. Unsummarized sessions are
// never evicted, whatever their age.
func (s *SessionStore) EvictOlderThan(retention time.Duration) int {
	cutoff := s.now().Add(-retention).UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.Summarized && sess.LastActivity < cutoff {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// SessionStats is a snapshot of store contents for the debug surface.
type SessionStats struct {
	Sessions   int
	Summarized int
	Turns      int
	Users      int
}

// Stats reports store-wide counts; with a userID it reports only that
// user's share.
func (s *SessionStore) Stats(userID string) SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make(map[string]struct{})
	var st SessionStats
	for _, sess := range s.sessions {
		if userID != "" && sess.UserID != userID {
			continue
		}
		st.Sessions++
		st.Turns += len(sess.Turns)
		if sess.Summarized {
			st.Summarized++
		}
		users[sess.UserID] = struct{}{}
	}
	st.Users = len(users)
	return st
}
