package server

import (
	"undertone/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SearchPosts handles GET /api/posts/search?q=...&limit=&threshold=
// Semantic ranking when the flag is on, keyword match otherwise.
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	query := c.Query("q")
	limit := c.QueryInt("limit", 10)
	threshold := c.QueryFloat("threshold", 0)

	res, err := s.searchService.SearchPosts(c.UserContext(), currentUserID(c), query, limit, threshold)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"query":         query,
		"results":       res.Hits,
		"total_results": res.Total,
	})
}

// GetSimilarPosts handles GET /api/posts/:id/similar.
func (s *Server) GetSimilarPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	limit := c.QueryInt("limit", 5)

	posts, err := s.searchService.RecommendForPost(c.UserContext(), id, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"results": posts})
}

// GetMyRecommendations handles GET /api/users/me/recommendations.
// Returns the raw ranked content-id list from the similarity index.
func (s *Server) GetMyRecommendations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	query := c.Query("q")
	limit := c.QueryInt("limit", 5)

	ids, err := s.searchService.RecommendForUser(c.UserContext(), userID, query, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"content_ids": ids})
}
