package service

import (
	"context"
	"strings"

	"undertone/internal/models"
	"undertone/internal/repository"
)

// PostService provides post business logic. Creation persists first and then
// hands the post to the enrichment service on a detached context, so the
// caller's response never waits on inference.
type PostService struct {
	posts       repository.PostRepository
	communities repository.CommunityRepository
	enrichment  *EnrichmentService
}

// NewPostService returns a new PostService.
func NewPostService(
	posts repository.PostRepository,
	communities repository.CommunityRepository,
	enrichment *EnrichmentService,
) *PostService {
	return &PostService{
		posts:       posts,
		communities: communities,
		enrichment:  enrichment,
	}
}

// CreatePostInput is the input for creating a post.
type CreatePostInput struct {
	UserID        uint
	Title         string
	Content       string
	CommunitySlug string
}

// CreatePost validates and persists a post, then enriches it in the
// background. The returned post carries the neutral defaults; emotion fields
// fill in once analysis lands.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}

	post := &models.Post{
		Title:           title,
		Content:         content,
		UserID:          in.UserID,
		DominantEmotion: models.DefaultEmotion,
	}

	if in.CommunitySlug != "" {
		community, err := s.communities.GetBySlug(ctx, in.CommunitySlug)
		if err != nil {
			return nil, err
		}
		post.CommunityID = &community.ID
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	go func() {
		detached, cancel := DetachedContext(ctx)
		defer cancel()
		s.enrichment.EnrichPost(detached, post)
	}()

	return post, nil
}

// GetPost returns a single post by id.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// ListPosts returns a page of posts, newest first or by score.
func (s *PostService) ListPosts(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error) {
	return s.posts.List(ctx, limit, offset, sort)
}

// ListPostsByUser returns a page of one user's posts.
func (s *PostService) ListPostsByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.posts.ListByUser(ctx, userID, limit, offset)
}

// ListPostsByCommunity resolves the community slug and returns its posts.
func (s *PostService) ListPostsByCommunity(ctx context.Context, slug string, limit, offset int, sort string) ([]*models.Post, error) {
	community, err := s.communities.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.posts.ListByCommunity(ctx, community.ID, limit, offset, sort)
}

// Vote records an up or down vote on a post.
func (s *PostService) Vote(ctx context.Context, postID uint, up bool) error {
	return s.posts.Vote(ctx, postID, up)
}

// DeletePost removes a post. Only the author may delete it.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	return s.posts.Delete(ctx, postID)
}
