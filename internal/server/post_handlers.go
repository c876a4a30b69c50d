package server

import (
	"undertone/internal/models"
	"undertone/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts.
// The response carries neutral enrichment defaults; emotion analysis runs in
// the background and fills in later.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title     string `json:"title"`
		Content   string `json:"content"`
		Community string `json:"community"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:        userID,
		Title:         req.Title,
		Content:       req.Content,
		CommunitySlug: req.Community,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	sort := c.Query("sort", "new")

	posts, err := s.postService.ListPosts(c.UserContext(), p.Limit, p.Offset, sort)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts":  posts,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// GetPost handles GET /api/posts/:id.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postService.ListPostsByUser(c.UserContext(), userID, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// UpvotePost handles POST /api/posts/:id/upvote.
func (s *Server) UpvotePost(c *fiber.Ctx) error {
	return s.votePost(c, true)
}

// DownvotePost handles POST /api/posts/:id/downvote.
func (s *Server) DownvotePost(c *fiber.Ctx) error {
	return s.votePost(c, false)
}

func (s *Server) votePost(c *fiber.Ctx, up bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Vote(c.UserContext(), id, up); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Vote recorded"})
}

// DeletePost handles DELETE /api/posts/:id.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := c.Locals("userID").(uint)

	if err := s.postService.DeletePost(c.UserContext(), id, userID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetCommunities handles GET /api/communities.
func (s *Server) GetCommunities(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	communities, err := s.communityRepo.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"communities": communities})
}

// GetCommunityBySlug handles GET /api/communities/:slug.
func (s *Server) GetCommunityBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	community, err := s.communityRepo.GetBySlug(c.UserContext(), slug)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(community)
}

// GetCommunityPosts handles GET /api/communities/:slug/posts.
func (s *Server) GetCommunityPosts(c *fiber.Ctx) error {
	slug := c.Params("slug")
	p := parsePagination(c, 20)
	sort := c.Query("sort", "new")

	posts, err := s.postService.ListPostsByCommunity(c.UserContext(), slug, p.Limit, p.Offset, sort)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}
