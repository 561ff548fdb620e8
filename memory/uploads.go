package memory

import "sync"

// UploadTracker remembers which turn ids have already been pushed to the
// vector store, per chat, so the bulk sync path never re-embeds or
// re-uploads a turn it already sent.
//
// Not persisted: a restart can cause one batch of duplicate uploads,
// which is acceptable because vector upserts are idempotent by id.
type UploadTracker struct {
	mu       sync.Mutex
	uploaded map[string]map[string]struct{} // chat id -> turn id set
}

func NewUploadTracker() *UploadTracker {
	return &UploadTracker{uploaded: make(map[string]map[string]struct{})}
}

// Pending returns the subset of turnIDs not yet marked uploaded for the
// chat, preserving input order.
func (t *UploadTracker) Pending(chatID string, turnIDs []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := t.uploaded[chatID]
	var out []string
	for _, id := range turnIDs {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// MarkUploaded records turn ids as uploaded for the chat.
func (t *UploadTracker) MarkUploaded(chatID string, turnIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := t.uploaded[chatID]
	if seen == nil {
		seen = make(map[string]struct{})
		t.uploaded[chatID] = seen
	}
	for _, id := range turnIDs {
		seen[id] = struct{}{}
	}
}

// Clear forgets the chat's upload history, forcing a full re-upload on
// the next sync. Used on chat deletion and explicit re-upload requests.
func (t *UploadTracker) Clear(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.uploaded, chatID)
}

// ClearAll forgets every chat's upload history.
func (t *UploadTracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploaded = make(map[string]map[string]struct{})
}

// Count reports how many turns are recorded as uploaded for the chat.
func (t *UploadTracker) Count(chatID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.uploaded[chatID])
}
