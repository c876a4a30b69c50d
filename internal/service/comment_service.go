package service

import (
	"context"
	"strings"

	"undertone/internal/models"
	"undertone/internal/repository"
)

// CommentService provides comment business logic.
type CommentService struct {
	comments   repository.CommentRepository
	posts      repository.PostRepository
	enrichment *EnrichmentService
}

// NewCommentService returns a new CommentService.
func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	enrichment *EnrichmentService,
) *CommentService {
	return &CommentService{
		comments:   comments,
		posts:      posts,
		enrichment: enrichment,
	}
}

// CreateCommentInput is the input for creating a comment.
type CreateCommentInput struct {
	PostID   uint
	UserID   uint
	ParentID *uint
	Content  string
}

// CreateComment validates and persists a comment, bumping the post's comment
// counter in the same transaction, then enriches it in the background and
// refreshes the post's discussion aggregate.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}

	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		UserID:          in.UserID,
		ParentID:        in.ParentID,
		Content:         content,
		DominantEmotion: models.DefaultEmotion,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	go func() {
		detached, cancel := DetachedContext(ctx)
		defer cancel()
		s.enrichment.EnrichComment(detached, comment)
	}()

	return comment, nil
}

// ListComments returns a post's comments as a flat list, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

// CommentTree returns a post's comments as a reply tree.
func (s *CommentService) CommentTree(ctx context.Context, postID uint) ([]*models.CommentNode, error) {
	comments, err := s.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return models.BuildCommentTree(comments), nil
}

// DeleteComment removes a comment. Only the author may delete it.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}
	return s.comments.Delete(ctx, commentID)
}
