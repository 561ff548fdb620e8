package memory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Record type tags stored in vector metadata.
const (
	RecordTypeSummary = "session_summary"
	RecordTypeTurn    = "chat_turn"
	RecordTypeProfile = "user_profile"
)

// SummaryRecord is the composed memory record for one summarized
// session: summary text plus structured metadata.
type SummaryRecord struct {
	summary Summary
}

func NewSummaryRecord(sum Summary) *SummaryRecord {
	return &SummaryRecord{summary: sum}
}

func (r *SummaryRecord) ID() string {
	return "summary_" + r.summary.SessionID
}

func (r *SummaryRecord) Text() string {
	return fmt.Sprintf("Conversation summary (%d turns): %s\nTopics: %s",
		r.summary.TurnCount, r.summary.Summary, strings.Join(r.summary.KeyTopics, ", "))
}

func (r *SummaryRecord) Metadata() map[string]string {
	md := map[string]string{
		"user_id":    r.summary.UserID,
		"type":       RecordTypeSummary,
		"session_id": r.summary.SessionID,
		"timestamp":  strconv.FormatInt(r.summary.Timestamp, 10),
		"turn_count": strconv.Itoa(r.summary.TurnCount),
		"span_start": strconv.FormatInt(r.summary.Timespan.Start, 10),
		"span_end":   strconv.FormatInt(r.summary.Timespan.End, 10),
	}
	if r.summary.ChatID != "" {
		md["chat_id"] = r.summary.ChatID
	}
	if len(r.summary.KeyTopics) > 0 {
		md["tags"] = strings.Join(r.summary.KeyTopics, ",")
	}
	return md
}

// TurnRecord is the raw-turn record used by the bulk sync path.
type TurnRecord struct {
	turn Turn
}

func NewTurnRecord(t Turn) *TurnRecord {
	return &TurnRecord{turn: t}
}

func (r *TurnRecord) ID() string {
	return r.turn.ID
}

func (r *TurnRecord) Text() string {
	return fmt.Sprintf("User: %s\nAI: %s", r.turn.UserPrompt, r.turn.AIResponse)
}

func (r *TurnRecord) Metadata() map[string]string {
	md := map[string]string{
		"user_id":   r.turn.UserID,
		"type":      RecordTypeTurn,
		"timestamp": strconv.FormatInt(r.turn.Timestamp, 10),
	}
	if r.turn.ChatID != "" {
		md["chat_id"] = r.turn.ChatID
	}
	if r.turn.HasImage {
		md["has_image"] = "true"
	}
	return md
}

// ProfileRecord holds facts extracted by the background profile task.
type ProfileRecord struct {
	id        string
	userID    string
	facts     string
	timestamp int64
}

func NewProfileRecord(userID, facts string, timestamp int64) *ProfileRecord {
	return &ProfileRecord{
		id:        "profile_" + userID + "_" + uuid.New().String()[:8],
		userID:    userID,
		facts:     facts,
		timestamp: timestamp,
	}
}

func (r *ProfileRecord) ID() string   { return r.id }
func (r *ProfileRecord) Text() string { return r.facts }

func (r *ProfileRecord) Metadata() map[string]string {
	return map[string]string{
		"user_id":   r.userID,
		"type":      RecordTypeProfile,
		"timestamp": strconv.FormatInt(r.timestamp, 10),
	}
}
