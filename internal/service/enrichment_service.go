package service

import (
	"context"
	"strconv"
	"time"

	"undertone/internal/featureflags"
	"undertone/internal/middleware"
	"undertone/internal/mlclient"
	"undertone/internal/models"
	"undertone/internal/observability"
	"undertone/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// enrichTimeout bounds one background enrichment run end to end.
const enrichTimeout = 2 * time.Minute

// EnrichmentService layers best-effort ML analysis over persisted content.
// Every inference call can come back nil; enrichment then simply leaves the
// neutral defaults in place. Nothing here ever fails a user request.
type EnrichmentService struct {
	posts             repository.PostRepository
	comments          repository.CommentRepository
	ml                mlclient.Inference
	flags             *featureflags.Manager
	toxicityThreshold float64
}

// NewEnrichmentService returns a new EnrichmentService.
func NewEnrichmentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	ml mlclient.Inference,
	flags *featureflags.Manager,
	toxicityThreshold float64,
) *EnrichmentService {
	return &EnrichmentService{
		posts:             posts,
		comments:          comments,
		ml:                ml,
		flags:             flags,
		toxicityThreshold: toxicityThreshold,
	}
}

// DetachedContext returns a context for post-commit enrichment that survives
// the originating request ending but still carries its trace and log values.
func DetachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), enrichTimeout)
}

// EnrichPost analyzes a freshly created post and stores its emotion profile
// and embedding. The post row already exists; absence of the inference
// service leaves it untouched.
func (s *EnrichmentService) EnrichPost(ctx context.Context, post *models.Post) {
	if !s.flags.Enabled(featureflags.FlagEnrichment, post.UserID) {
		return
	}

	span, ctx := observability.NewSpan(ctx, "enrichment.post")
	defer span.End()
	span.AddAttributes(attribute.Int("post.id", int(post.ID)))

	contentID := strconv.FormatUint(uint64(post.ID), 10)
	text := post.AnalysisText()

	if res := s.ml.AnalyzePostEmotions(ctx, contentID, text); res != nil {
		err := s.posts.UpdateEnrichment(ctx, post.ID, res.DominantEmotion, toEmotionList(res.Emotions), res.Confidence)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to store post emotions", "post_id", post.ID, "error", err)
		}
	}

	if res := s.ml.StorePostEmbedding(ctx, contentID, text); res == nil {
		middleware.Logger.DebugContext(ctx, "post embedding not stored", "post_id", post.ID)
	}
}

// EnrichComment analyzes a new comment for emotions and toxicity, then
// refreshes the parent post's discussion-level aggregate.
func (s *EnrichmentService) EnrichComment(ctx context.Context, comment *models.Comment) {
	if !s.flags.Enabled(featureflags.FlagEnrichment, comment.UserID) {
		return
	}

	span, ctx := observability.NewSpan(ctx, "enrichment.comment")
	defer span.End()
	span.AddAttributes(
		attribute.Int("comment.id", int(comment.ID)),
		attribute.Int("post.id", int(comment.PostID)),
	)

	if res := s.ml.AnalyzeEmotions(ctx, comment.Content, mlclient.DefaultEmotionThreshold); res != nil && len(res.Emotions) > 0 {
		emotions := toEmotionList(res.Emotions)
		err := s.comments.UpdateEnrichment(ctx, comment.ID, emotions.Dominant(), emotions, res.Emotions[0].Probability)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to store comment emotions", "comment_id", comment.ID, "error", err)
		}
	}

	if res := s.ml.AnalyzeToxicity(ctx, comment.Content); res != nil {
		flagged := res.Label == "toxic" && res.Score >= s.toxicityThreshold
		if err := s.comments.SetToxicity(ctx, comment.ID, res.Score, flagged); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to store toxicity", "comment_id", comment.ID, "error", err)
		}
	}

	s.ReaggregateDiscussion(ctx, comment.PostID)
}

// ReaggregateDiscussion recomputes the discussion-level emotion aggregate for
// a post from the full current comment set and overwrites the post's dominant
// emotion and confidence. Concurrent comments may race here; the last run to
// finish wins, and both ran over near-identical inputs.
func (s *EnrichmentService) ReaggregateDiscussion(ctx context.Context, postID uint) {
	span, ctx := observability.NewSpan(ctx, "enrichment.discussion")
	defer span.End()
	span.AddAttributes(attribute.Int("post.id", int(postID)))

	post, comments, err := s.loadDiscussion(ctx, postID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "discussion load failed", "post_id", postID, "error", err)
		return
	}

	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		texts = append(texts, c.Content)
	}

	contentID := strconv.FormatUint(uint64(postID), 10)
	res := s.ml.AnalyzeDiscussionEmotions(ctx, contentID, post.AnalysisText(), texts)
	if res == nil {
		return
	}

	err = s.posts.UpdateEnrichment(ctx, postID, res.OverallDominantEmotion, toEmotionList(res.PostEmotions), res.Confidence)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to store discussion emotions", "post_id", postID, "error", err)
	}
}

// DiscussionEmotions computes the live discussion aggregate for read access.
// Unlike the write paths this surfaces service absence to the caller.
func (s *EnrichmentService) DiscussionEmotions(ctx context.Context, postID uint) (*mlclient.DiscussionEmotionsResult, error) {
	post, comments, err := s.loadDiscussion(ctx, postID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(comments))
	for _, c := range comments {
		texts = append(texts, c.Content)
	}

	contentID := strconv.FormatUint(uint64(postID), 10)
	res := s.ml.AnalyzeDiscussionEmotions(ctx, contentID, post.AnalysisText(), texts)
	if res == nil {
		return nil, models.NewServiceUnavailableError("Emotion analysis is temporarily unavailable")
	}
	return res, nil
}

// Summarize produces an abstractive summary of the given text.
func (s *EnrichmentService) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	if text == "" {
		return "", models.NewValidationError("Text is required")
	}
	if maxLength <= 0 {
		maxLength = 130
	}
	if minLength <= 0 {
		minLength = 30
	}
	res := s.ml.Summarize(ctx, text, maxLength, minLength)
	if res == nil {
		return "", models.NewServiceUnavailableError("Summarization is temporarily unavailable")
	}
	return res.Summary, nil
}

func (s *EnrichmentService) loadDiscussion(ctx context.Context, postID uint) (*models.Post, []*models.Comment, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return post, comments, nil
}

func toEmotionList(scores []mlclient.EmotionScore) models.EmotionList {
	out := make(models.EmotionList, 0, len(scores))
	for _, s := range scores {
		out = append(out, models.EmotionScore{Emotion: s.Emotion, Probability: s.Probability})
	}
	return out
}
