package models

import (
	"time"
)

// Comment represents a comment on a post. Comments form a tree through
// ParentID (nil for root comments); replies are reconstructed by grouping on
// ParentID rather than by traversing live object references.
//
// ToxicityScore and IsFlagged are produced best-effort at creation time and
// remain settable by moderation.
type Comment struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	PostID            uint        `gorm:"not null;index" json:"post_id"`
	Post              *Post       `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID            uint        `gorm:"not null" json:"user_id"`
	User              User        `gorm:"foreignKey:UserID" json:"user"`
	ParentID          *uint       `gorm:"index" json:"parent_id,omitempty"`
	Content           string      `gorm:"type:text;not null" json:"content"`
	Upvotes           int         `gorm:"not null;default:0" json:"upvotes"`
	Downvotes         int         `gorm:"not null;default:0" json:"downvotes"`
	DominantEmotion   string      `gorm:"not null;default:neutral" json:"dominant_emotion"`
	Emotions          EmotionList `gorm:"type:text" json:"emotions"`
	EmotionConfidence float64     `gorm:"not null;default:0" json:"emotion_confidence"`
	ToxicityScore     float64     `gorm:"not null;default:0" json:"toxicity_score"`
	IsFlagged         bool        `gorm:"not null;default:false" json:"is_flagged"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// CommentNode is a comment plus its direct replies, used for tree responses.
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies"`
}

// BuildCommentTree reconstructs the reply tree from a flat, creation-ordered
// comment list by indexing on ParentID. Comments whose parent is missing from
// the input are treated as roots so a partial listing still renders.
func BuildCommentTree(comments []*Comment) []*CommentNode {
	nodes := make(map[uint]*CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &CommentNode{Comment: *c, Replies: []*CommentNode{}}
	}

	var roots []*CommentNode
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
