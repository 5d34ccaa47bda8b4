package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uninet-dev/campus-hub-api/internal/models"
)

// ForumPostRepository reads and moderates forum posts. The forum itself is
// owned elsewhere; this store exists so forum_post complaints can be
// dereferenced and moderated.
type ForumPostRepository struct {
	db *sqlx.DB
}

// NewForumPostRepository constructs the repository.
func NewForumPostRepository(db *sqlx.DB) *ForumPostRepository {
	return &ForumPostRepository{db: db}
}

// GetByID fetches a forum post by identifier.
func (r *ForumPostRepository) GetByID(ctx context.Context, id string) (*models.ForumPost, error) {
	const query = `SELECT id, title, content, author_id, tags, like_count, comment_count, created_at
	FROM forum_posts WHERE id = $1`
	var post models.ForumPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete removes a forum post.
func (r *ForumPostRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forum_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete forum post: %w", err)
	}
	return requireRowsAffected(result)
}

// CountByAuthor returns how many posts a user has published.
func (r *ForumPostRepository) CountByAuthor(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM forum_posts WHERE author_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count posts by author: %w", err)
	}
	return count, nil
}
