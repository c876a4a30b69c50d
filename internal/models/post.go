package models

import (
	"time"
)

// Post represents a post in the Undertone application.
//
// The enrichment fields (DominantEmotion, Emotions, EmotionConfidence) are
// written asynchronously after creation; readers may observe the defaults
// ("neutral", empty, 0.0) until enrichment completes. Emotions always holds
// the post's own standalone breakdown, while DominantEmotion and
// EmotionConfidence are overwritten by the discussion-level aggregate once
// comments exist.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"user"`
	CommunityID *uint      `gorm:"index" json:"community_id,omitempty"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	Upvotes     int        `gorm:"not null;default:0" json:"upvotes"`
	Downvotes   int        `gorm:"not null;default:0" json:"downvotes"`
	// CommentsCount is a persisted counter maintained transactionally at
	// comment-creation time, not recomputed from the comments table.
	CommentsCount     int         `gorm:"not null;default:0" json:"comments_count"`
	DominantEmotion   string      `gorm:"not null;default:neutral" json:"dominant_emotion"`
	Emotions          EmotionList `gorm:"type:text" json:"emotions"`
	EmotionConfidence float64     `gorm:"not null;default:0" json:"emotion_confidence"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// AnalysisText is the text the inference service sees for this post.
func (p *Post) AnalysisText() string {
	return p.Title + "\n\n" + p.Content
}

// Community is an optional grouping for posts.
type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"unique;not null" json:"slug"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
