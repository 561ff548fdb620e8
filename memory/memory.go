package memory

import "context"

// Record is a unit of long-term memory ready for vector storage.
// Implementations control their own embedding text and metadata schema.
//
// Implementations:
//   - SummaryRecord: one summarized session (the scheduler's upload)
//   - TurnRecord: one raw turn (the bulk sync upload)
//   - ProfileRecord: extracted user facts (the every-3rd-turn side task)
type Record interface {
	// ID is the stable upsert key. Re-uploading the same record is an
	// overwrite at the vector-store layer, which makes retries safe.
	ID() string

	// Text is the representation that gets embedded and stored as content.
	Text() string

	// Metadata returns the filterable attributes. Always includes at least
	// "user_id", "timestamp" and "type"; may include "chat_id", "tags"
	// and "session_id".
	Metadata() map[string]string
}

// Match is one ranked result from a long-term memory query.
type Match struct {
	ID       string
	Score    float32 // similarity in [0,1], highest first
	Content  string
	Metadata map[string]string
}

// VectorStore is the long-term memory backend.
// Implementations: chromem.Store (embedded, local SDK); production
// backends sit behind the same interface.
//
// The memory core is write-mostly toward this interface and treats every
// call as fallible: query failures degrade to empty long-term results,
// upsert failures keep a session eligible for the next summarization tick.
type VectorStore interface {
	// Embed converts text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Upsert stores one record, overwriting by Record.ID.
	Upsert(ctx context.Context, rec Record) error

	// UpsertBatch stores records in chunks of chunkSize.
	UpsertBatch(ctx context.Context, recs []Record, chunkSize int) error

	// Query returns up to topK matches for the query text, restricted by
	// the metadata filter, dropping matches scoring below threshold.
	Query(ctx context.Context, text string, topK int, filter map[string]string, threshold float32) ([]Match, error)

	// DeleteOne removes a record by id.
	DeleteOne(ctx context.Context, id string) error

	// DeleteMany removes all records matching the metadata filter.
	DeleteMany(ctx context.Context, filter map[string]string) error

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock.Embedder (testing), onnx.Embedder (local SDK).
//
// Note: Embedder is an implementation detail of the VectorStore.
// The orchestration layer never calls it directly.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
