package service

import (
	"context"
	"testing"

	"undertone/internal/mlclient"
	"undertone/internal/models"

	"github.com/stretchr/testify/assert"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn           func(context.Context, *models.Post) error
	getByIDFn          func(context.Context, uint) (*models.Post, error)
	getByIDsFn         func(context.Context, []uint) ([]*models.Post, error)
	listFn             func(context.Context, int, int, string) ([]*models.Post, error)
	listByUserFn       func(context.Context, uint, int, int) ([]*models.Post, error)
	listByCommunityFn  func(context.Context, uint, int, int, string) ([]*models.Post, error)
	searchFn           func(context.Context, string, int, int) ([]*models.Post, error)
	updateFn           func(context.Context, *models.Post) error
	updateEnrichmentFn func(context.Context, uint, string, models.EmotionList, float64) error
	voteFn             func(context.Context, uint, bool) error
	deleteFn           func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, sort string) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, sort)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) ListByCommunity(ctx context.Context, communityID uint, limit, offset int, sort string) ([]*models.Post, error) {
	return s.listByCommunityFn(ctx, communityID, limit, offset, sort)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) UpdateEnrichment(ctx context.Context, id uint, dominant string, emotions models.EmotionList, confidence float64) error {
	return s.updateEnrichmentFn(ctx, id, dominant, emotions, confidence)
}
func (s *postRepoStub) Vote(ctx context.Context, id uint, up bool) error { return s.voteFn(ctx, id, up) }
func (s *postRepoStub) Delete(ctx context.Context, id uint) error       { return s.deleteFn(ctx, id) }

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		getByIDsFn: func(_ context.Context, ids []uint) ([]*models.Post, error) {
			posts := make([]*models.Post, 0, len(ids))
			for _, id := range ids {
				posts = append(posts, &models.Post{ID: id})
			}
			return posts, nil
		},
		listFn: func(_ context.Context, _, _ int, _ string) ([]*models.Post, error) { return nil, nil },
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		listByCommunityFn: func(_ context.Context, _ uint, _, _ int, _ string) ([]*models.Post, error) {
			return nil, nil
		},
		searchFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) { return nil, nil },
		updateFn: func(_ context.Context, _ *models.Post) error { return nil },
		updateEnrichmentFn: func(_ context.Context, _ uint, _ string, _ models.EmotionList, _ float64) error {
			return nil
		},
		voteFn:   func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn           func(context.Context, *models.Comment) error
	getByIDFn          func(context.Context, uint) (*models.Comment, error)
	listByPostFn       func(context.Context, uint) ([]*models.Comment, error)
	updateFn           func(context.Context, *models.Comment) error
	updateEnrichmentFn func(context.Context, uint, string, models.EmotionList, float64) error
	setToxicityFn      func(context.Context, uint, float64, bool) error
	deleteFn           func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Update(ctx context.Context, c *models.Comment) error {
	return s.updateFn(ctx, c)
}
func (s *commentRepoStub) UpdateEnrichment(ctx context.Context, id uint, dominant string, emotions models.EmotionList, confidence float64) error {
	return s.updateEnrichmentFn(ctx, id, dominant, emotions, confidence)
}
func (s *commentRepoStub) SetToxicity(ctx context.Context, id uint, score float64, flagged bool) error {
	return s.setToxicityFn(ctx, id, score, flagged)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		updateEnrichmentFn: func(_ context.Context, _ uint, _ string, _ models.EmotionList, _ float64) error {
			return nil
		},
		setToxicityFn: func(_ context.Context, _ uint, _ float64, _ bool) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn              func(context.Context, uint) (*models.User, error)
	getByIDWithInterestsFn func(context.Context, uint) (*models.User, error)
	getByEmailFn           func(context.Context, string) (*models.User, error)
	getByUsernameFn        func(context.Context, string) (*models.User, error)
	createFn               func(context.Context, *models.User) error
	updateFn               func(context.Context, *models.User) error
	deleteFn               func(context.Context, uint) error
	listFn                 func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDWithInterests(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDWithInterestsFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) Delete(ctx context.Context, id uint) error        { return s.deleteFn(ctx, id) }
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByIDWithInterestsFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// communityRepoStub is a stub for repository.CommunityRepository.
type communityRepoStub struct {
	createFn    func(context.Context, *models.Community) error
	getByIDFn   func(context.Context, uint) (*models.Community, error)
	getBySlugFn func(context.Context, string) (*models.Community, error)
	listFn      func(context.Context, int, int) ([]models.Community, error)
}

func (s *communityRepoStub) Create(ctx context.Context, c *models.Community) error {
	return s.createFn(ctx, c)
}
func (s *communityRepoStub) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	return s.getByIDFn(ctx, id)
}
func (s *communityRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *communityRepoStub) List(ctx context.Context, limit, offset int) ([]models.Community, error) {
	return s.listFn(ctx, limit, offset)
}

func noopCommunityRepo() *communityRepoStub {
	return &communityRepoStub{
		createFn: func(_ context.Context, _ *models.Community) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Community, error) {
			return &models.Community{ID: id}, nil
		},
		getBySlugFn: func(_ context.Context, slug string) (*models.Community, error) {
			return &models.Community{ID: 1, Slug: slug}, nil
		},
		listFn: func(_ context.Context, _, _ int) ([]models.Community, error) { return nil, nil },
	}
}

// mlStub is a stub for mlclient.Inference. Unset functions behave like an
// unreachable inference service and return nil.
type mlStub struct {
	healthCheckFn        func(context.Context) bool
	analyzeToxicityFn    func(context.Context, string) *mlclient.AnalysisResult
	summarizeFn          func(context.Context, string, int, int) *mlclient.SummaryResult
	embedAndStoreFn      func(context.Context, string, string) *mlclient.EmbeddingResult
	searchSimilarFn      func(context.Context, string, int) *mlclient.SearchResult
	analyzeEmotionsFn    func(context.Context, string, float64) *mlclient.EmotionsResult
	postEmotionsFn       func(context.Context, string, string) *mlclient.PostEmotionsResult
	discussionEmotionsFn func(context.Context, string, string, []string) *mlclient.DiscussionEmotionsResult
	semanticSearchFn     func(context.Context, string, int, float64) *mlclient.SemanticSearchResult
	storeEmbeddingFn     func(context.Context, string, string) *mlclient.EmbeddingResult
}

func (s *mlStub) HealthCheck(ctx context.Context) bool {
	if s.healthCheckFn == nil {
		return false
	}
	return s.healthCheckFn(ctx)
}
func (s *mlStub) AnalyzeToxicity(ctx context.Context, text string) *mlclient.AnalysisResult {
	if s.analyzeToxicityFn == nil {
		return nil
	}
	return s.analyzeToxicityFn(ctx, text)
}
func (s *mlStub) Summarize(ctx context.Context, text string, maxLength, minLength int) *mlclient.SummaryResult {
	if s.summarizeFn == nil {
		return nil
	}
	return s.summarizeFn(ctx, text, maxLength, minLength)
}
func (s *mlStub) EmbedAndStore(ctx context.Context, contentID, text string) *mlclient.EmbeddingResult {
	if s.embedAndStoreFn == nil {
		return nil
	}
	return s.embedAndStoreFn(ctx, contentID, text)
}
func (s *mlStub) SearchSimilar(ctx context.Context, query string, topK int) *mlclient.SearchResult {
	if s.searchSimilarFn == nil {
		return nil
	}
	return s.searchSimilarFn(ctx, query, topK)
}
func (s *mlStub) AnalyzeEmotions(ctx context.Context, text string, threshold float64) *mlclient.EmotionsResult {
	if s.analyzeEmotionsFn == nil {
		return nil
	}
	return s.analyzeEmotionsFn(ctx, text, threshold)
}
func (s *mlStub) AnalyzePostEmotions(ctx context.Context, postID, content string) *mlclient.PostEmotionsResult {
	if s.postEmotionsFn == nil {
		return nil
	}
	return s.postEmotionsFn(ctx, postID, content)
}
func (s *mlStub) AnalyzeDiscussionEmotions(ctx context.Context, postID, content string, comments []string) *mlclient.DiscussionEmotionsResult {
	if s.discussionEmotionsFn == nil {
		return nil
	}
	return s.discussionEmotionsFn(ctx, postID, content, comments)
}
func (s *mlStub) SemanticSearch(ctx context.Context, query string, limit int, threshold float64) *mlclient.SemanticSearchResult {
	if s.semanticSearchFn == nil {
		return nil
	}
	return s.semanticSearchFn(ctx, query, limit, threshold)
}
func (s *mlStub) StorePostEmbedding(ctx context.Context, contentID, text string) *mlclient.EmbeddingResult {
	if s.storeEmbeddingFn == nil {
		return nil
	}
	return s.storeEmbeddingFn(ctx, contentID, text)
}

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, code, appErr.Code)
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidationError)
}
