package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Turn is one user/assistant exchange. Immutable once created; it lives
// inside exactly one Session and is only ever removed together with it.
type Turn struct {
	ID         string
	UserID     string
	ChatID     string // empty for legacy ungrouped turns
	UserPrompt string
	AIResponse string
	Timestamp  int64 // unix milliseconds

	// Optional image attachment.
	ImageURL    string
	ImagePrompt string
	HasImage    bool
}

// Image is an optional attachment recorded with a turn.
type Image struct {
	URL    string
	Prompt string
}

// Session is a time-bounded, chat-scoped group of turns that forms one
// summarizable unit. Turns are kept in insertion order, which is also
// chronological order.
type Session struct {
	ID           string
	UserID       string
	ChatID       string
	Turns        []Turn
	StartTime    int64 // unix milliseconds
	LastActivity int64 // unix milliseconds, >= StartTime
	Summarized   bool  // monotonic false -> true
}

// Timespan is the first/last activity window of a summarized session.
type Timespan struct {
	Start int64
	End   int64
}

// Summary is the compressed representation of one closed session.
// Created at most once per session, never mutated.
type Summary struct {
	SessionID string
	UserID    string
	ChatID    string
	Summary   string
	KeyTopics []string
	TurnCount int
	Timespan  Timespan
	Timestamp int64 // creation time, unix milliseconds
}

func newTurnID() string {
	return "turn_" + uuid.New().String()
}

// newSessionID mints a session id embedding the owner, chat, current time
// and a random suffix for uniqueness.
func newSessionID(userID, chatID string, now time.Time) string {
	chat := chatID
	if chat == "" {
		chat = "none"
	}
	return fmt.Sprintf("session_%s_%s_%d_%s", userID, chat, now.UnixMilli(), uuid.New().String()[:8])
}

// clone returns a deep copy safe to hand across the store boundary.
func (s *Session) clone() Session {
	out := *s
	out.Turns = make([]Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	return out
}
