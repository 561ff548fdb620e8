package memory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mnemolabs/mnemo/llm"
)

const (
	maxConversationTopics = 5
	maxDocumentTopics     = 6

	minTopicLen = 3
	maxTopicLen = 30 // exclusive
)

// TopicExtractor derives a small set of topic tags from text.
//
// Two tiers: an AI-generated comma-separated list via the generator, and
// a deterministic keyword classifier used whenever the generator fails,
// returns nothing parseable, or is absent. The fallback is pure string
// work and always reproducible for the same input.
type TopicExtractor struct {
	gen llm.Generator
}

// NewTopicExtractor creates an extractor. gen may be nil, in which case
// only the keyword tier runs.
func NewTopicExtractor(gen llm.Generator) *TopicExtractor {
	return &TopicExtractor{gen: gen}
}

// Extract returns 3-8 short tags for conversation text, capped at 5.
func (e *TopicExtractor) Extract(ctx context.Context, text string) []string {
	return e.extract(ctx, text, maxConversationTopics)
}

// ExtractDocument returns tags for document text, capped at 6.
func (e *TopicExtractor) ExtractDocument(ctx context.Context, text string) []string {
	return e.extract(ctx, text, maxDocumentTopics)
}

func (e *TopicExtractor) extract(ctx context.Context, text string, limit int) []string {
	if e.gen != nil {
		prompt := fmt.Sprintf(
			"List the main topics of the following text as a short comma-separated list of %d or fewer lowercase tags. Reply with the tags only.\n\n%s",
			limit, text)
		raw, err := e.gen.Generate(ctx, prompt)
		if err != nil {
			log.Printf("[TOPICS] Generator failed, using keyword fallback: %v", err)
		} else if tags := parseTopicList(raw, limit); len(tags) > 0 {
			return tags
		} else {
			log.Printf("[TOPICS] Unparseable generator output, using keyword fallback")
		}
	}
	return ExtractKeywordTopics(text)
}

// parseTopicList normalizes a comma-separated tag list: lowercase,
// spaces to hyphens, length-bounded, capped.
func parseTopicList(raw string, limit int) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, ".")
		tag = strings.ReplaceAll(tag, " ", "-")
		if len(tag) < minTopicLen || len(tag) >= maxTopicLen {
			continue
		}
		tags = append(tags, tag)
		if len(tags) >= limit {
			break
		}
	}
	return tags
}

// topicKeywords maps each topic tag to its trigger keywords. A topic is
// included when any keyword appears as a substring of the lowercased
// input. Order is fixed so the output is stable.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"debugging", []string{"debug", "error", "bug", "crash", "stack trace", "exception", "broken"}},
	{"web-development", []string{"react", "javascript", "typescript", "html", "css", "frontend", "website", "browser"}},
	{"backend", []string{"server", "api", "database", "sql", "backend", "endpoint"}},
	{"devops", []string{"docker", "kubernetes", "deploy", "ci/cd", "terraform", "aws", "cloud"}},
	{"machine-learning", []string{"machine learning", "neural", "model training", "llm", "embedding", "dataset"}},
	{"programming", []string{"code", "function", "compile", "program", "script", "algorithm"}},
	{"career", []string{"job", "interview", "resume", "salary", "promotion", "career"}},
	{"finance", []string{"money", "budget", "invest", "tax", "savings", "finance"}},
	{"health", []string{"health", "doctor", "exercise", "sleep", "diet", "workout"}},
	{"travel", []string{"travel", "flight", "hotel", "trip", "vacation", "itinerary"}},
	{"food", []string{"recipe", "cook", "restaurant", "meal", "food", "ingredient"}},
	{"education", []string{"learn", "study", "course", "tutorial", "homework", "exam"}},
	{"entertainment", []string{"movie", "music", "game", "book", "show", "podcast"}},
	{"writing", []string{"essay", "article", "write", "draft", "blog", "story"}},
}

// ExtractKeywordTopics is the deterministic fallback classifier: fixed
// table, substring membership, no external calls, never fails. Returns
// ["general"] when nothing matches.
func ExtractKeywordTopics(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, entry.topic)
				break
			}
		}
		if len(tags) >= maxConversationTopics {
			break
		}
	}
	if len(tags) == 0 {
		return []string{"general"}
	}
	return tags
}
