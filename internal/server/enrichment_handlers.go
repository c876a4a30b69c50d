package server

import (
	"undertone/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPostEmotions handles GET /api/posts/:id/emotions.
// Computes the discussion-level emotion aggregate live; unlike the stored
// enrichment fields this surfaces inference outages as 503.
func (s *Server) GetPostEmotions(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.enrichmentService.DiscussionEmotions(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// Summarize handles POST /api/summarize.
func (s *Server) Summarize(c *fiber.Ctx) error {
	var req struct {
		Text      string `json:"text"`
		MaxLength int    `json:"max_length"`
		MinLength int    `json:"min_length"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	summary, err := s.enrichmentService.Summarize(c.UserContext(), req.Text, req.MaxLength, req.MinLength)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"summary": summary})
}
