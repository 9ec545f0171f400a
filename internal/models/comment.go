package models

import (
	"time"
)

// Comment represents a comment on an article. A nil ParentID marks a root comment.
type Comment struct {
	ID         string     `json:"id" db:"id"`
	ArticleID  string     `json:"articleId" db:"article_id"`
	UserID     string     `json:"userId" db:"user_id"`
	UserName   string     `json:"userName" db:"user_name"`
	UserAvatar string     `json:"userAvatar,omitempty" db:"user_avatar"`
	Content    string     `json:"content" db:"content"`
	Likes      int        `json:"likes" db:"likes"`
	LikedBy    []string   `json:"likedBy" db:"liked_by"`
	ParentID   *string    `json:"parentId" db:"parent_id"`
	Edited     bool       `json:"edited" db:"edited"`
	EditedAt   *time.Time `json:"editedAt,omitempty" db:"edited_at"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// IsRoot reports whether the comment has no parent
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// LikedByUser reports whether userID is in the likedBy set
func (c *Comment) LikedByUser(userID string) bool {
	for _, id := range c.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CommentThread is a root comment with its ordered replies
type CommentThread struct {
	Comment
	Replies []*Comment `json:"replies"`
}

// CommentList is the read model returned for an article's comments
type CommentList struct {
	Threads []*CommentThread `json:"comments"`
	Total   int              `json:"total"`
}

// CreateCommentRequest is the typed body of POST /articles/:slug/comments
type CreateCommentRequest struct {
	Content    string  `json:"content"`
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName"`
	UserAvatar string  `json:"userAvatar,omitempty"`
	ParentID   *string `json:"parentId,omitempty"`
}

// UpdateCommentRequest is the typed body of PUT /comments/:id.
// Exactly one of Content or Like must be present; client-sent counts are never trusted.
type UpdateCommentRequest struct {
	Content *string  `json:"content,omitempty"`
	Like    *bool    `json:"like,omitempty"`
	Likes   *int     `json:"likes,omitempty"`
	LikedBy []string `json:"likedBy,omitempty"`
}

// Comment listing options
const (
	CommentSortOldest  = "oldest"
	CommentSortNewest  = "newest"
	CommentSortPopular = "popular"
)

// RecentCommentWindow bounds the "recent" comment filter
const RecentCommentWindow = 24 * time.Hour

// MaxCommentLength is the maximum allowed characters in a comment
const MaxCommentLength = 5000
