package server

import (
	"context"
	"net/http"
	"testing"

	"undertone/internal/mlclient"
	"undertone/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndReadPosts(t *testing.T) {
	app, _, mailer := newTestServer(t, nil)
	token := signupUser(t, app, mailer, "dave", "dave@example.com")

	// Unauthenticated create is refused
	resp, _ := doJSON(t, app, "POST", "/api/posts", "", map[string]any{
		"title": "t", "content": "c",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, "POST", "/api/posts", token, map[string]any{
		"title":   "First post",
		"content": "Hello world",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "First post", body["title"])
	// Enrichment defaults until analysis lands
	assert.Equal(t, "neutral", body["dominant_emotion"])
	postID := int(body["id"].(float64))

	resp, body = doJSON(t, app, "GET", "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)

	resp, body = doJSON(t, app, "GET", "/api/posts/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(postID), body["id"])

	resp, body = doJSON(t, app, "GET", "/api/posts/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])

	resp, body = doJSON(t, app, "POST", "/api/posts", token, map[string]any{
		"title": "", "content": "no title",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestCommentsAndCounter(t *testing.T) {
	app, _, mailer := newTestServer(t, nil)
	token := signupUser(t, app, mailer, "erin", "erin@example.com")

	resp, body := doJSON(t, app, "POST", "/api/posts", token, map[string]any{
		"title": "Discussion", "content": "Talk here",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, app, "POST", "/api/posts/1/comments", token, map[string]any{
		"content": "first comment",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "neutral", body["dominant_emotion"])

	resp, body = doJSON(t, app, "POST", "/api/posts/1/comments", token, map[string]any{
		"content":   "a reply",
		"parent_id": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The persisted counter was bumped transactionally with each insert.
	resp, body = doJSON(t, app, "GET", "/api/posts/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["comments_count"])

	// Flat list, oldest first
	resp, body = doJSON(t, app, "GET", "/api/posts/1/comments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := body["comments"].([]any)
	require.Len(t, comments, 2)

	// Tree nests the reply
	resp, body = doJSON(t, app, "GET", "/api/posts/1/comments/tree", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tree := body["comments"].([]any)
	require.Len(t, tree, 1)
	root := tree[0].(map[string]any)
	replies := root["replies"].([]any)
	assert.Len(t, replies, 1)

	// Commenting on a missing post 404s and changes nothing
	resp, body = doJSON(t, app, "POST", "/api/posts/99/comments", token, map[string]any{
		"content": "orphan",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVoteAndDelete(t *testing.T) {
	app, srv, mailer := newTestServer(t, nil)
	token := signupUser(t, app, mailer, "finn", "finn@example.com")

	resp, _ := doJSON(t, app, "POST", "/api/posts", token, map[string]any{
		"title": "Vote on me", "content": "body",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/posts/1/comments", token, map[string]any{
		"content": "hot take",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/posts/1/upvote", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, "POST", "/api/posts/1/downvote", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, "GET", "/api/posts/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["upvotes"])
	assert.Equal(t, float64(1), body["downvotes"])

	// Another user cannot delete it
	other := signupUser(t, app, mailer, "gus", "gus@example.com")
	resp, _ = doJSON(t, app, "DELETE", "/api/posts/1", other, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, "DELETE", "/api/posts/1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The comment thread went with the post.
	var orphans int64
	require.NoError(t, srv.db.Model(&models.Comment{}).Where("post_id = ?", 1).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestSearchPosts_SemanticOrdering(t *testing.T) {
	ml := &mlStub{
		semanticSearchFn: func(_ context.Context, _ string, _ int, _ float64) *mlclient.SemanticSearchResult {
			return &mlclient.SemanticSearchResult{Results: []mlclient.SemanticHit{
				{ContentID: "2", Similarity: 0.9},
				{ContentID: "1", Similarity: 0.6},
			}}
		},
	}
	app, _, mailer := newTestServer(t, ml)
	token := signupUser(t, app, mailer, "hana", "hana@example.com")

	for _, title := range []string{"older", "newer"} {
		resp, _ := doJSON(t, app, "POST", "/api/posts", token, map[string]any{
			"title": title, "content": "text",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, app, "GET", "/api/posts/search?q=anything", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total_results"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, float64(0.9), first["similarity"])
	firstPost := first["post"].(map[string]any)
	assert.Equal(t, float64(2), firstPost["id"])
}

func TestGetPostEmotions(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		app, _, mailer := newTestServer(t, nil)
		token := signupUser(t, app, mailer, "iris", "iris@example.com")
		resp, _ := doJSON(t, app, "POST", "/api/posts", token, map[string]any{
			"title": "t", "content": "c",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, body := doJSON(t, app, "GET", "/api/posts/1/emotions", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
	})

	t.Run("live aggregate", func(t *testing.T) {
		ml := &mlStub{
			discussionEmotionsFn: func(_ context.Context, _, _ string, _ []string) *mlclient.DiscussionEmotionsResult {
				return &mlclient.DiscussionEmotionsResult{
					OverallDominantEmotion: "joy",
					Confidence:             0.8,
					TotalAnalyzed:          1,
				}
			},
		}
		app, _, mailer := newTestServer(t, ml)
		token := signupUser(t, app, mailer, "jude", "jude@example.com")
		resp, _ := doJSON(t, app, "POST", "/api/posts", token, map[string]any{
			"title": "t", "content": "c",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, body := doJSON(t, app, "GET", "/api/posts/1/emotions", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "joy", body["overall_dominant_emotion"])
	})
}

func TestSummarize(t *testing.T) {
	ml := &mlStub{
		summarizeFn: func(_ context.Context, _ string, _, _ int) *mlclient.SummaryResult {
			return &mlclient.SummaryResult{Summary: "tl;dr"}
		},
	}
	app, _, mailer := newTestServer(t, ml)
	token := signupUser(t, app, mailer, "kira", "kira@example.com")

	resp, body := doJSON(t, app, "POST", "/api/summarize", token, map[string]any{
		"text": "a very long story",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tl;dr", body["summary"])

	resp, _ = doJSON(t, app, "POST", "/api/summarize", "", map[string]any{"text": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
