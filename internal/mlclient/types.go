package mlclient

// EmotionScore is one emotion label with its classifier probability.
type EmotionScore struct {
	Emotion     string  `json:"emotion"`
	Probability float64 `json:"probability"`
}

// AnalysisResult is the toxicity classification for a text.
type AnalysisResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SummaryResult holds a generated summary.
type SummaryResult struct {
	Summary string `json:"summary"`
}

// EmbeddingResult acknowledges a stored embedding.
type EmbeddingResult struct {
	Status    string `json:"status"`
	ContentID string `json:"content_id"`
}

// SearchResult is the raw ranked content-id list from the similarity index.
type SearchResult struct {
	ContentIDs []string `json:"content_ids"`
}

// EmotionsResult is a probability-descending emotion breakdown for one text.
type EmotionsResult struct {
	Emotions []EmotionScore `json:"emotions"`
}

// PostEmotionsResult is the standalone emotion analysis of a single post.
type PostEmotionsResult struct {
	DominantEmotion string         `json:"dominant_emotion"`
	Emotions        []EmotionScore `json:"emotions"`
	Confidence      float64        `json:"confidence"`
}

// DiscussionEmotionsResult aggregates emotions across a post and its comments.
// EmotionBreakdown maps each emotion to its probability averaged over every
// text in the discussion that reported it; the highest average is the overall
// dominant emotion and its value is Confidence.
type DiscussionEmotionsResult struct {
	OverallDominantEmotion string             `json:"overall_dominant_emotion"`
	PostDominantEmotion    string             `json:"post_dominant_emotion"`
	PostEmotions           []EmotionScore     `json:"post_emotions"`
	CommentEmotions        [][]EmotionScore   `json:"comment_emotions"`
	EmotionBreakdown       map[string]float64 `json:"emotion_breakdown"`
	Confidence             float64            `json:"confidence"`
	TotalAnalyzed          int                `json:"total_analyzed"`
}

// SemanticHit is one ranked semantic search result.
type SemanticHit struct {
	ContentID  string  `json:"content_id"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// SemanticSearchResult holds ranked semantic search hits, similarity-descending.
type SemanticSearchResult struct {
	Results []SemanticHit `json:"results"`
}

// DefaultEmotionThreshold is the minimum probability an emotion must clear to
// be reported; below it the service falls back to a neutral singleton.
const DefaultEmotionThreshold = 0.3

type analysisRequest struct {
	Text string `json:"text"`
}

type summaryRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

type embeddingRequest struct {
	ContentID string `json:"content_id"`
	Text      string `json:"text"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type emotionRequest struct {
	Text      string  `json:"text"`
	Threshold float64 `json:"threshold"`
}

type postEmotionRequest struct {
	PostID  string `json:"post_id"`
	Content string `json:"content"`
}

type discussionEmotionRequest struct {
	PostID   string   `json:"post_id"`
	Content  string   `json:"content"`
	Comments []string `json:"comments"`
}

type semanticSearchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}
