package forums

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asimpleforum/server/internal/apperror"
)

// ForumRepository defines the data access contract for forums, posts, and
// replies. Forums always come back with their whitelists populated, since
// every caller needs them for the authorization decision.
type ForumRepository interface {
	ListForums(ctx context.Context, offset, limit int) ([]Forum, error)
	FindForum(ctx context.Context, id string) (*Forum, error)

	ListPosts(ctx context.Context, forumID string, offset, limit int) ([]Post, error)
	FindPost(ctx context.Context, id string) (*Post, error)
	CreatePost(ctx context.Context, post *Post) error

	ListReplies(ctx context.Context, postID, parentID string, offset, limit int) ([]Reply, error)
	FindReply(ctx context.Context, id string) (*Reply, error)
	CreateReply(ctx context.Context, reply *Reply) error
}

// forumRepository implements ForumRepository with MariaDB queries.
type forumRepository struct {
	db *sql.DB
}

// NewForumRepository creates a new forum repository backed by the given DB pool.
func NewForumRepository(db *sql.DB) ForumRepository {
	return &forumRepository{db: db}
}

// ListForums returns a page of forums ordered by creation date, whitelists
// included.
func (r *forumRepository) ListForums(ctx context.Context, offset, limit int) ([]Forum, error) {
	query := `SELECT id, name, description, created_at
	          FROM forums ORDER BY created_at ASC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing forums: %w", err)
	}
	defer rows.Close()

	var forums []Forum
	for rows.Next() {
		var f Forum
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning forum row: %w", err)
		}
		forums = append(forums, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range forums {
		whitelist, err := r.whitelist(ctx, forums[i].ID)
		if err != nil {
			return nil, err
		}
		forums[i].Whitelist = whitelist
	}

	return forums, nil
}

// FindForum retrieves a forum by id, whitelist included.
// Returns apperror.NotFound if no forum exists with this id.
func (r *forumRepository) FindForum(ctx context.Context, id string) (*Forum, error) {
	query := `SELECT id, name, description, created_at FROM forums WHERE id = ?`

	f := &Forum{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("forum not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying forum: %w", err)
	}

	whitelist, err := r.whitelist(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	f.Whitelist = whitelist

	return f, nil
}

// whitelist loads the grant list for one forum.
func (r *forumRepository) whitelist(ctx context.Context, forumID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM forum_whitelist WHERE forum_id = ?`, forumID)
	if err != nil {
		return nil, fmt.Errorf("loading forum whitelist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning whitelist row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListPosts returns a page of a forum's posts, oldest first, excluding
// removed posts.
func (r *forumRepository) ListPosts(ctx context.Context, forumID string, offset, limit int) ([]Post, error) {
	query := `SELECT id, forum_id, author_id, title, body, removed, created_at
	          FROM posts
	          WHERE forum_id = ? AND removed = FALSE
	          ORDER BY created_at ASC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, forumID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.ForumID, &p.AuthorID, &p.Title, &p.Body, &p.Removed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

// FindPost retrieves a single post by id. Removed posts are reported as
// not found.
func (r *forumRepository) FindPost(ctx context.Context, id string) (*Post, error) {
	query := `SELECT id, forum_id, author_id, title, body, removed, created_at
	          FROM posts WHERE id = ? AND removed = FALSE`

	p := &Post{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.ForumID, &p.AuthorID, &p.Title, &p.Body, &p.Removed, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying post: %w", err)
	}

	return p, nil
}

// CreatePost inserts a new post row.
func (r *forumRepository) CreatePost(ctx context.Context, post *Post) error {
	query := `INSERT INTO posts (id, forum_id, author_id, title, body, removed, created_at)
	          VALUES (?, ?, ?, ?, ?, FALSE, ?)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.ForumID, post.AuthorID, post.Title, post.Body, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	return nil
}

// ListReplies returns a page of replies under a parent, oldest first.
// An empty parentID selects top-level replies.
func (r *forumRepository) ListReplies(ctx context.Context, postID, parentID string, offset, limit int) ([]Reply, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == "" {
		query := `SELECT id, post_id, COALESCE(parent_reply_id, ''), author_id, body, created_at
		          FROM replies
		          WHERE post_id = ? AND parent_reply_id IS NULL
		          ORDER BY created_at ASC LIMIT ? OFFSET ?`
		rows, err = r.db.QueryContext(ctx, query, postID, limit, offset)
	} else {
		query := `SELECT id, post_id, COALESCE(parent_reply_id, ''), author_id, body, created_at
		          FROM replies
		          WHERE post_id = ? AND parent_reply_id = ?
		          ORDER BY created_at ASC LIMIT ? OFFSET ?`
		rows, err = r.db.QueryContext(ctx, query, postID, parentID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("listing replies: %w", err)
	}
	defer rows.Close()

	var replies []Reply
	for rows.Next() {
		var rep Reply
		if err := rows.Scan(&rep.ID, &rep.PostID, &rep.ParentReplyID, &rep.AuthorID, &rep.Body, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reply row: %w", err)
		}
		replies = append(replies, rep)
	}

	return replies, rows.Err()
}

// FindReply retrieves a single reply by id.
func (r *forumRepository) FindReply(ctx context.Context, id string) (*Reply, error) {
	query := `SELECT id, post_id, COALESCE(parent_reply_id, ''), author_id, body, created_at
	          FROM replies WHERE id = ?`

	rep := &Reply{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rep.ID, &rep.PostID, &rep.ParentReplyID, &rep.AuthorID, &rep.Body, &rep.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("reply not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying reply: %w", err)
	}

	return rep, nil
}

// CreateReply inserts a new reply row.
func (r *forumRepository) CreateReply(ctx context.Context, reply *Reply) error {
	query := `INSERT INTO replies (id, post_id, parent_reply_id, author_id, body, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	var parent any
	if reply.ParentReplyID != "" {
		parent = reply.ParentReplyID
	}

	_, err := r.db.ExecContext(ctx, query,
		reply.ID, reply.PostID, parent, reply.AuthorID, reply.Body, reply.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reply: %w", err)
	}

	return nil
}
