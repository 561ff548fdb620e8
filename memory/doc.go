// Package memory implements hybrid memory orchestration for an AI chat
// backend: short-term turns in process, periodic AI-generated session
// summaries, and an external vector store for long-term recall.
//
// Architecture:
//   - SessionStore: per-user sessions and turns, 30-minute session affinity
//   - SummaryStore: summaries of closed sessions, keyed by session
//   - Summarizer: promotes idle sessions into summaries and vector records
//   - Scheduler: cron-driven ticks around the Summarizer
//   - Hybrid: query-time orchestrator merging all three tiers
//   - ShouldSkipVectorSearch: the cost-optimization decision
//
// The vector store and the text generator are external collaborators
// reachable only through the VectorStore and llm.Generator interfaces.
// Both are treated as unreliable: failures are logged and degrade the
// operation (local-only answers, summarization retried on the next tick)
// instead of failing the caller's request.
//
// Local SDK Implementation:
//   - chromem-go store (embedded vector database, ristretto embedding cache)
//   - ONNX embedder with all-MiniLM-L6-v2 (real semantic search, offline)
//   - mock embedder for tests
package memory
