// Package forums serves the forum index, post listings, post bodies, and
// reply threads, and accepts new posts and replies. Every protected read
// follows the same two-step protocol: resolve the session token (if any),
// then ask the authorization engine whether the resolved identity may see
// the forum. Public forums are readable anonymously -- unlike mail, which
// always requires a live session.
package forums

import (
	"time"
)

// Forum represents one forum board. Whitelist holds the user ids granted
// access; an empty whitelist makes the forum public.
type Forum struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Whitelist   []string  `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsPublic reports whether the forum is readable without a grant.
func (f *Forum) IsPublic() bool {
	return len(f.Whitelist) == 0
}

// Post is one thread-starting post inside a forum.
type Post struct {
	ID        string    `json:"id"`
	ForumID   string    `json:"forum_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Removed   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply is one reply under a post. ParentReplyID is empty for top-level
// replies.
type Reply struct {
	ID            string    `json:"id"`
	PostID        string    `json:"post_id"`
	ParentReplyID string    `json:"parent_reply_id,omitempty"`
	AuthorID      string    `json:"author_id"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

// --- Response shapes ---

// ForumSummary is one row of the forum index.
type ForumSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// PostSummary is one row of a forum's post index. Author is the resolved
// display identifier, not the user id.
type PostSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// PostView is a full post body.
type PostView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyView is one reply in a thread listing.
type ReplyView struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// --- Request DTOs ---

// PostIndexRequest asks for a page of a forum's posts.
type PostIndexRequest struct {
	ForumID   string `json:"id" form:"id"`
	SessionID string `json:"sessionId" form:"sessionId"`
	Offset    int    `json:"offset" form:"offset"`
	Limit     int    `json:"limit" form:"limit"`
}

// PostRequest asks for a single post.
type PostRequest struct {
	PostID    string `json:"id" form:"id"`
	SessionID string `json:"sessionId" form:"sessionId"`
}

// RepliesRequest asks for a page of replies under a parent.
type RepliesRequest struct {
	PostID    string `json:"id" form:"id"`
	SessionID string `json:"sessionId" form:"sessionId"`
	Parent    string `json:"parent" form:"parent"`
	Offset    int    `json:"offset" form:"offset"`
	Limit     int    `json:"limit" form:"limit"`
}

// CreatePostRequest submits a new post.
type CreatePostRequest struct {
	SessionID string `json:"sessionId" form:"sessionId"`
	ForumID   string `json:"forumId" form:"forumId"`
	Title     string `json:"title" form:"title"`
	Body      string `json:"body" form:"body"`
}

// CreateReplyRequest submits a new reply. Parent is empty for a top-level
// reply.
type CreateReplyRequest struct {
	SessionID string `json:"sessionId" form:"sessionId"`
	PostID    string `json:"postId" form:"postId"`
	Parent    string `json:"parent" form:"parent"`
	Body      string `json:"body" form:"body"`
}
