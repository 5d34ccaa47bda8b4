package models

import (
	"time"

	"github.com/lib/pq"
)

// ForumPost is the minimal forum record needed to dereference forum_post
// complaints and apply moderation deletes.
type ForumPost struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Content      string         `db:"content" json:"content"`
	AuthorID     string         `db:"author_id" json:"author_id"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
	LikeCount    int            `db:"like_count" json:"like_count"`
	CommentCount int            `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
