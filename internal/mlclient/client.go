// Package mlclient is the request/response boundary to the external inference
// service (toxicity, summarization, embeddings, emotions, semantic search).
//
// Every operation resolves to an explicit absence value (a nil result) on
// transport failure, timeout, or a non-success status, never an error, so
// callers apply best-effort semantics without exception-driven control flow.
// The client performs no retries; retry policy belongs to callers.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"undertone/internal/middleware"
	"undertone/internal/observability"
)

// DefaultTimeout bounds every call to the inference service.
const DefaultTimeout = 30 * time.Second

// Inference is the capability surface services depend on. *Client implements it.
type Inference interface {
	HealthCheck(ctx context.Context) bool
	AnalyzeToxicity(ctx context.Context, text string) *AnalysisResult
	Summarize(ctx context.Context, text string, maxLength, minLength int) *SummaryResult
	EmbedAndStore(ctx context.Context, contentID, text string) *EmbeddingResult
	SearchSimilar(ctx context.Context, query string, topK int) *SearchResult
	AnalyzeEmotions(ctx context.Context, text string, threshold float64) *EmotionsResult
	AnalyzePostEmotions(ctx context.Context, postID, content string) *PostEmotionsResult
	AnalyzeDiscussionEmotions(ctx context.Context, postID, content string, comments []string) *DiscussionEmotionsResult
	SemanticSearch(ctx context.Context, query string, limit int, threshold float64) *SemanticSearchResult
	StorePostEmbedding(ctx context.Context, contentID, text string) *EmbeddingResult
}

// Client talks to the inference service over HTTP. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the inference service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     middleware.Logger,
	}
}

// HealthCheck reports whether the inference service is reachable and healthy.
func (c *Client) HealthCheck(ctx context.Context) bool {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	ok := err == nil && resp.StatusCode == http.StatusOK
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	observability.ObserveMLRequest("health", start, !ok)
	return ok
}

// AnalyzeToxicity classifies text toxicity.
func (c *Client) AnalyzeToxicity(ctx context.Context, text string) *AnalysisResult {
	return post[AnalysisResult](c, ctx, "analyze", "/analyze", analysisRequest{Text: text})
}

// Summarize produces a summary of text bounded by maxLength/minLength.
func (c *Client) Summarize(ctx context.Context, text string, maxLength, minLength int) *SummaryResult {
	return post[SummaryResult](c, ctx, "summarize", "/summarize", summaryRequest{
		Text:      text,
		MaxLength: maxLength,
		MinLength: minLength,
	})
}

// EmbedAndStore stores a vector for contentID in the external similarity index.
func (c *Client) EmbedAndStore(ctx context.Context, contentID, text string) *EmbeddingResult {
	return post[EmbeddingResult](c, ctx, "embed_and_store", "/embed-and-store", embeddingRequest{
		ContentID: contentID,
		Text:      text,
	})
}

// SearchSimilar returns the topK content ids most similar to query.
func (c *Client) SearchSimilar(ctx context.Context, query string, topK int) *SearchResult {
	return post[SearchResult](c, ctx, "search", "/search", searchRequest{Query: query, TopK: topK})
}

// AnalyzeEmotions returns the probability-descending emotion breakdown for
// one text; emotions below threshold are dropped and a neutral singleton is
// reported when nothing clears it.
func (c *Client) AnalyzeEmotions(ctx context.Context, text string, threshold float64) *EmotionsResult {
	if threshold <= 0 {
		threshold = DefaultEmotionThreshold
	}
	return post[EmotionsResult](c, ctx, "emotions", "/emotions", emotionRequest{
		Text:      text,
		Threshold: threshold,
	})
}

// AnalyzePostEmotions analyzes a single post's emotions.
func (c *Client) AnalyzePostEmotions(ctx context.Context, postID, content string) *PostEmotionsResult {
	return post[PostEmotionsResult](c, ctx, "post_emotions", "/post-emotions", postEmotionRequest{
		PostID:  postID,
		Content: content,
	})
}

// AnalyzeDiscussionEmotions analyzes a post together with all of its comments.
func (c *Client) AnalyzeDiscussionEmotions(ctx context.Context, postID, content string, comments []string) *DiscussionEmotionsResult {
	return post[DiscussionEmotionsResult](c, ctx, "discussion_emotions", "/discussion-emotions", discussionEmotionRequest{
		PostID:   postID,
		Content:  content,
		Comments: comments,
	})
}

// SemanticSearch performs ranked semantic search with content snippets.
func (c *Client) SemanticSearch(ctx context.Context, query string, limit int, threshold float64) *SemanticSearchResult {
	return post[SemanticSearchResult](c, ctx, "semantic_search", "/semantic-search", semanticSearchRequest{
		Query:     query,
		Limit:     limit,
		Threshold: threshold,
	})
}

// StorePostEmbedding stores a post embedding for semantic search.
func (c *Client) StorePostEmbedding(ctx context.Context, contentID, text string) *EmbeddingResult {
	return post[EmbeddingResult](c, ctx, "store_post_embedding", "/store-post-embedding", embeddingRequest{
		ContentID: contentID,
		Text:      text,
	})
}

// post issues one JSON POST and decodes the response into T. It returns nil
// on any failure after logging it.
func post[T any](c *Client, ctx context.Context, operation, path string, body any) *T {
	start := time.Now()
	result, err := doPost[T](c, ctx, path, body)
	observability.ObserveMLRequest(operation, start, result == nil)
	if err != nil {
		c.logger.WarnContext(ctx, "inference service call failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
	return result
}

func doPost[T any](c *Client, ctx context.Context, path string, body any) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
