package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"undertone/internal/config"
	"undertone/internal/database"
	"undertone/internal/mlclient"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mailerStub captures OTPs instead of sending mail.
type mailerStub struct {
	lastTo  string
	lastOTP string
}

func (m *mailerStub) SendOTP(to, otp string) error {
	m.lastTo = to
	m.lastOTP = otp
	return nil
}

// mlStub is a stub inference client. Unset functions act unreachable.
type mlStub struct {
	summarizeFn          func(context.Context, string, int, int) *mlclient.SummaryResult
	searchSimilarFn      func(context.Context, string, int) *mlclient.SearchResult
	semanticSearchFn     func(context.Context, string, int, float64) *mlclient.SemanticSearchResult
	discussionEmotionsFn func(context.Context, string, string, []string) *mlclient.DiscussionEmotionsResult
}

func (s *mlStub) HealthCheck(context.Context) bool { return false }
func (s *mlStub) AnalyzeToxicity(context.Context, string) *mlclient.AnalysisResult {
	return nil
}
func (s *mlStub) Summarize(ctx context.Context, text string, maxLength, minLength int) *mlclient.SummaryResult {
	if s.summarizeFn == nil {
		return nil
	}
	return s.summarizeFn(ctx, text, maxLength, minLength)
}
func (s *mlStub) EmbedAndStore(context.Context, string, string) *mlclient.EmbeddingResult {
	return nil
}
func (s *mlStub) SearchSimilar(ctx context.Context, query string, topK int) *mlclient.SearchResult {
	if s.searchSimilarFn == nil {
		return nil
	}
	return s.searchSimilarFn(ctx, query, topK)
}
func (s *mlStub) AnalyzeEmotions(context.Context, string, float64) *mlclient.EmotionsResult {
	return nil
}
func (s *mlStub) AnalyzePostEmotions(context.Context, string, string) *mlclient.PostEmotionsResult {
	return nil
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
func (s *mlStub) StorePostEmbedding(context.Context, string, string) *mlclient.EmbeddingResult {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test_secret",
		Env:                   "test",
		OTPExpiryMinutes:      10,
		OTPMaxAttempts:        5,
		ToxicityFlagThreshold: 0.7,
		MLServiceURL:          "http://localhost:0",
		MLTimeoutSeconds:      1,
	}
}

// newTestServer wires a full server over an in-memory database with stubbed
// mail and inference, and returns the routed app for HTTP-level tests.
func newTestServer(t *testing.T, ml mlclient.Inference) (*fiber.App, *Server, *mailerStub) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// A pooled second connection to :memory: would see its own empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	mailer := &mailerStub{}
	if ml == nil {
		ml = &mlStub{}
	}
	s, err := NewServerWithDeps(testConfig(), db, nil, ml, mailer)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return app, s, mailer
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// signupUser drives the full signup flow and returns a bearer token.
func signupUser(t *testing.T, app *fiber.App, mailer *mailerStub, username, emailAddr string) string {
	t.Helper()

	resp, _ := doJSON(t, app, "POST", "/api/auth/signup/start", "", map[string]any{
		"username": username,
		"email":    emailAddr,
		"password": "Sup3rSecret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, mailer.lastOTP)

	resp, _ = doJSON(t, app, "POST", "/api/auth/signup/verify-otp", "", map[string]any{
		"email": emailAddr,
		"otp":   mailer.lastOTP,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, "POST", "/api/auth/signup/complete", "", map[string]any{
		"email": emailAddr,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}
