package service

import (
	"context"
	"testing"

	"undertone/internal/featureflags"
	"undertone/internal/middleware"
	"undertone/internal/mlclient"
	"undertone/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetachedContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	parent = context.WithValue(parent, middleware.RequestIDKey, "req-123")
	cancel()

	detached, done := DetachedContext(parent)
	defer done()

	// Post-commit work outlives the request that triggered it but still logs
	// under its request id.
	assert.NoError(t, detached.Err())
	assert.Equal(t, "req-123", detached.Value(middleware.RequestIDKey))
	_, hasDeadline := detached.Deadline()
	assert.True(t, hasDeadline)
}

func TestEnrichmentService_EnrichPost(t *testing.T) {
	ctx := context.Background()

	t.Run("stores emotions and embedding", func(t *testing.T) {
		posts := noopPostRepo()
		var gotID uint
		var gotDominant string
		var gotConfidence float64
		posts.updateEnrichmentFn = func(_ context.Context, id uint, dominant string, emotions models.EmotionList, confidence float64) error {
			gotID, gotDominant, gotConfidence = id, dominant, confidence
			return nil
		}

		var embeddedID, embeddedText string
		ml := &mlStub{
			postEmotionsFn: func(_ context.Context, postID, content string) *mlclient.PostEmotionsResult {
				assert.Equal(t, "42", postID)
				return &mlclient.PostEmotionsResult{
					DominantEmotion: "joy",
					Emotions:        []mlclient.EmotionScore{{Emotion: "joy", Probability: 0.8}},
					Confidence:      0.8,
				}
			},
			storeEmbeddingFn: func(_ context.Context, contentID, text string) *mlclient.EmbeddingResult {
				embeddedID, embeddedText = contentID, text
				return &mlclient.EmbeddingResult{Status: "stored", ContentID: contentID}
			},
		}

		svc := NewEnrichmentService(posts, noopCommentRepo(), ml, nil, 0.7)
		svc.EnrichPost(ctx, &models.Post{ID: 42, UserID: 1, Title: "Hello", Content: "World"})

		assert.Equal(t, uint(42), gotID)
		assert.Equal(t, "joy", gotDominant)
		assert.Equal(t, 0.8, gotConfidence)
		assert.Equal(t, "42", embeddedID)
		assert.Equal(t, "Hello\n\nWorld", embeddedText)
	})

	t.Run("service absence leaves post untouched", func(t *testing.T) {
		posts := noopPostRepo()
		posts.updateEnrichmentFn = func(_ context.Context, _ uint, _ string, _ models.EmotionList, _ float64) error {
			t.Fatal("enrichment written despite absent inference service")
			return nil
		}

		svc := NewEnrichmentService(posts, noopCommentRepo(), &mlStub{}, nil, 0.7)
		svc.EnrichPost(ctx, &models.Post{ID: 1, UserID: 1, Title: "t", Content: "c"})
	})

	t.Run("disabled flag skips inference entirely", func(t *testing.T) {
		ml := &mlStub{
			postEmotionsFn: func(_ context.Context, _, _ string) *mlclient.PostEmotionsResult {
				t.Fatal("inference called with enrichment disabled")
				return nil
			},
		}
		flags := featureflags.NewManager("enrichment=off")
		svc := NewEnrichmentService(noopPostRepo(), noopCommentRepo(), ml, flags, 0.7)
		svc.EnrichPost(ctx, &models.Post{ID: 1, UserID: 1, Title: "t", Content: "c"})
	})
}

func TestEnrichmentService_EnrichComment_Toxicity(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		label    string
		score    float64
		wantFlag bool
	}{
		{name: "toxic above threshold", label: "toxic", score: 0.91, wantFlag: true},
		{name: "toxic at threshold", label: "toxic", score: 0.7, wantFlag: true},
		{name: "toxic below threshold", label: "toxic", score: 0.5, wantFlag: false},
		{name: "non-toxic high score", label: "non-toxic", score: 0.95, wantFlag: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			comments := noopCommentRepo()
			var gotScore float64
			var gotFlagged bool
			comments.setToxicityFn = func(_ context.Context, _ uint, score float64, flagged bool) error {
				gotScore, gotFlagged = score, flagged
				return nil
			}

			ml := &mlStub{
				analyzeToxicityFn: func(_ context.Context, _ string) *mlclient.AnalysisResult {
					return &mlclient.AnalysisResult{Label: tc.label, Score: tc.score}
				},
			}

			svc := NewEnrichmentService(noopPostRepo(), comments, ml, nil, 0.7)
			svc.EnrichComment(ctx, &models.Comment{ID: 3, PostID: 1, UserID: 2, Content: "whatever"})

			assert.Equal(t, tc.score, gotScore)
			assert.Equal(t, tc.wantFlag, gotFlagged)
		})
	}
}

func TestEnrichmentService_EnrichComment_Emotions(t *testing.T) {
	ctx := context.Background()

	comments := noopCommentRepo()
	var gotDominant string
	var gotEmotions models.EmotionList
	comments.updateEnrichmentFn = func(_ context.Context, _ uint, dominant string, emotions models.EmotionList, _ float64) error {
		gotDominant, gotEmotions = dominant, emotions
		return nil
	}

	ml := &mlStub{
		analyzeEmotionsFn: func(_ context.Context, _ string, threshold float64) *mlclient.EmotionsResult {
			assert.Equal(t, mlclient.DefaultEmotionThreshold, threshold)
			return &mlclient.EmotionsResult{Emotions: []mlclient.EmotionScore{
				{Emotion: "anger", Probability: 0.6},
				{Emotion: "disgust", Probability: 0.3},
			}}
		},
	}

	svc := NewEnrichmentService(noopPostRepo(), comments, ml, nil, 0.7)
	svc.EnrichComment(ctx, &models.Comment{ID: 3, PostID: 1, UserID: 2, Content: "ugh"})

	assert.Equal(t, "anger", gotDominant)
	require.Len(t, gotEmotions, 2)
	assert.Equal(t, 0.6, gotEmotions[0].Probability)
}

func TestEnrichmentService_ReaggregateDiscussion(t *testing.T) {
	ctx := context.Background()

	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, Title: "Topic", Content: "Body"}, nil
	}
	var gotDominant string
	var gotEmotions models.EmotionList
	posts.updateEnrichmentFn = func(_ context.Context, _ uint, dominant string, emotions models.EmotionList, _ float64) error {
		gotDominant, gotEmotions = dominant, emotions
		return nil
	}

	comments := noopCommentRepo()
	comments.listByPostFn = func(_ context.Context, _ uint) ([]*models.Comment, error) {
		return []*models.Comment{{Content: "first"}, {Content: "second"}}, nil
	}

	ml := &mlStub{
		discussionEmotionsFn: func(_ context.Context, postID, content string, texts []string) *mlclient.DiscussionEmotionsResult {
			assert.Equal(t, "7", postID)
			assert.Equal(t, "Topic\n\nBody", content)
			assert.Equal(t, []string{"first", "second"}, texts)
			return &mlclient.DiscussionEmotionsResult{
				OverallDominantEmotion: "sadness",
				PostDominantEmotion:    "joy",
				PostEmotions:           []mlclient.EmotionScore{{Emotion: "joy", Probability: 0.9}},
				Confidence:             0.62,
				TotalAnalyzed:          3,
			}
		},
	}

	svc := NewEnrichmentService(posts, comments, ml, nil, 0.7)
	svc.ReaggregateDiscussion(ctx, 7)

	// The aggregate overwrites the dominant emotion; the stored breakdown
	// stays the post's own.
	assert.Equal(t, "sadness", gotDominant)
	require.Len(t, gotEmotions, 1)
	assert.Equal(t, "joy", gotEmotions[0].Emotion)
}

func TestEnrichmentService_DiscussionEmotions_Unavailable(t *testing.T) {
	svc := NewEnrichmentService(noopPostRepo(), noopCommentRepo(), &mlStub{}, nil, 0.7)
	_, err := svc.DiscussionEmotions(context.Background(), 1)
	assertAppErrorCode(t, err, models.CodeServiceUnavailable)
}

func TestEnrichmentService_Summarize(t *testing.T) {
	ctx := context.Background()

	t.Run("success with defaults", func(t *testing.T) {
		ml := &mlStub{
			summarizeFn: func(_ context.Context, _ string, maxLength, minLength int) *mlclient.SummaryResult {
				assert.Equal(t, 130, maxLength)
				assert.Equal(t, 30, minLength)
				return &mlclient.SummaryResult{Summary: "short version"}
			},
		}
		svc := NewEnrichmentService(noopPostRepo(), noopCommentRepo(), ml, nil, 0.7)
		got, err := svc.Summarize(ctx, "a very long text", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "short version", got)
	})

	t.Run("empty text", func(t *testing.T) {
		svc := NewEnrichmentService(noopPostRepo(), noopCommentRepo(), &mlStub{}, nil, 0.7)
		_, err := svc.Summarize(ctx, "", 0, 0)
		assertValidationError(t, err)
	})

	t.Run("unavailable", func(t *testing.T) {
		svc := NewEnrichmentService(noopPostRepo(), noopCommentRepo(), &mlStub{}, nil, 0.7)
		_, err := svc.Summarize(ctx, "text", 0, 0)
		assertAppErrorCode(t, err, models.CodeServiceUnavailable)
	})
}
