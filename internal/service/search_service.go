package service

import (
	"context"
	"strconv"
	"strings"

	"undertone/internal/featureflags"
	"undertone/internal/middleware"
	"undertone/internal/mlclient"
	"undertone/internal/models"
	"undertone/internal/repository"
)

// Defaults for semantic retrieval.
const (
	defaultSearchLimit        = 10
	defaultSimilarityFloor    = 0.3
	defaultRecommendationSize = 5
	previewLength             = 200
)

// SearchHit pairs a hydrated post with its ranking metadata.
type SearchHit struct {
	Post       *models.Post `json:"post"`
	Similarity float64      `json:"similarity"`
	Preview    string       `json:"preview"`
}

// SearchResults is a ranked page of search hits.
type SearchResults struct {
	Hits  []SearchHit `json:"results"`
	Total int         `json:"total"`
}

// SearchService coordinates keyword and semantic retrieval. Semantic ranking
// lives in the inference service; an outage surfaces as an empty page for
// searches and SERVICE_UNAVAILABLE for recommendations, never as a transport
// error.
type SearchService struct {
	posts repository.PostRepository
	users repository.UserRepository
	ml    mlclient.Inference
	flags *featureflags.Manager
}

// NewSearchService returns a new SearchService.
func NewSearchService(
	posts repository.PostRepository,
	users repository.UserRepository,
	ml mlclient.Inference,
	flags *featureflags.Manager,
) *SearchService {
	return &SearchService{posts: posts, users: users, ml: ml, flags: flags}
}

// SearchPosts ranks posts against a free-text query. With semantic search
// enabled, hits come back in similarity order and are resolved to rows
// preserving that order; stale ids are dropped, which can shorten the page,
// and an unreachable index yields an empty page rather than an error. With
// semantic search disabled the query runs as a keyword match instead.
func (s *SearchService) SearchPosts(ctx context.Context, userID uint, query string, limit int, threshold float64) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSimilarityFloor
	}

	if !s.flags.Enabled(featureflags.FlagSemanticSearch, userID) {
		posts, err := s.posts.Search(ctx, query, limit, 0)
		if err != nil {
			return nil, err
		}
		return keywordResults(posts), nil
	}

	res := s.ml.SemanticSearch(ctx, query, limit, threshold)
	if res == nil {
		middleware.Logger.WarnContext(ctx, "semantic search unavailable, returning empty page", "query", query)
		return &SearchResults{Hits: []SearchHit{}}, nil
	}

	posts, err := s.posts.GetByIDs(ctx, contentIDsToPostIDs(hitIDs(res.Results)))
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	hits := make([]SearchHit, 0, len(res.Results))
	for _, hit := range res.Results {
		n, perr := strconv.ParseUint(hit.ContentID, 10, 32)
		if perr != nil {
			continue
		}
		post, ok := byID[uint(n)]
		if !ok {
			// Stale index entry, the row is gone.
			continue
		}
		hits = append(hits, SearchHit{
			Post:       post,
			Similarity: hit.Similarity,
			Preview:    preview(post.Content),
		})
	}
	return &SearchResults{Hits: hits, Total: len(hits)}, nil
}

func keywordResults(posts []*models.Post) *SearchResults {
	hits := make([]SearchHit, 0, len(posts))
	for _, p := range posts {
		hits = append(hits, SearchHit{Post: p, Preview: preview(p.Content)})
	}
	return &SearchResults{Hits: hits, Total: len(hits)}
}

// preview truncates content for result listings. Truncation counts runes so a
// multi-byte character is never cut in half.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}

// RecommendForPost returns posts similar to the given one, excluding itself.
func (s *SearchService) RecommendForPost(ctx context.Context, postID uint, limit int) ([]*models.Post, error) {
	if limit <= 0 || limit > 50 {
		limit = defaultRecommendationSize
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	// Ask for one extra because the post itself is usually its own best match.
	res := s.ml.SearchSimilar(ctx, post.AnalysisText(), limit+1)
	if res == nil {
		return nil, models.NewServiceUnavailableError("Recommendations are temporarily unavailable")
	}

	self := strconv.FormatUint(uint64(postID), 10)
	filtered := make([]string, 0, len(res.ContentIDs))
	for _, id := range res.ContentIDs {
		if id == self {
			continue
		}
		filtered = append(filtered, id)
	}
	ids := contentIDsToPostIDs(filtered)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return s.posts.GetByIDs(ctx, ids)
}

// RecommendForUser ranks the index against the user's interests, biased by an
// optional free-text query, and returns the raw ranked content-id list.
// Callers that need full posts resolve the ids themselves.
func (s *SearchService) RecommendForUser(ctx context.Context, userID uint, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > 50 {
		limit = defaultRecommendationSize
	}

	user, err := s.users.GetByIDWithInterests(ctx, userID)
	if err != nil {
		return nil, err
	}

	parts := user.InterestNames()
	if q := strings.TrimSpace(query); q != "" {
		parts = append(parts, q)
	}
	if len(parts) == 0 {
		return []string{}, nil
	}

	res := s.ml.SearchSimilar(ctx, strings.Join(parts, " "), limit)
	if res == nil {
		return nil, models.NewServiceUnavailableError("Recommendations are temporarily unavailable")
	}
	return res.ContentIDs, nil
}

func hitIDs(hits []mlclient.SemanticHit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ContentID)
	}
	return ids
}

// contentIDsToPostIDs converts index content ids to post ids, skipping any
// that do not parse. Content ids are written as plain decimal post ids.
func contentIDsToPostIDs(contentIDs []string) []uint {
	ids := make([]uint, 0, len(contentIDs))
	for _, cid := range contentIDs {
		n, err := strconv.ParseUint(cid, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(n))
	}
	return ids
}
