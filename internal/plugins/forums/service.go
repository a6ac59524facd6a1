package forums

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/authz"
	"github.com/asimpleforum/server/internal/plugins/accounts"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/sanitize"
)

// Pagination bounds shared by the listing operations.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ForumService defines the business logic contract for forums. Every
// operation that touches a forum's content resolves the token first and
// authorizes second -- never the other way around, so an expired session
// behaves exactly like no session.
type ForumService interface {
	Index(ctx context.Context, token string, offset, limit int, includePrivate bool) ([]ForumSummary, error)
	Posts(ctx context.Context, req PostIndexRequest) ([]PostSummary, error)
	Post(ctx context.Context, req PostRequest) (*PostView, error)
	Replies(ctx context.Context, req RepliesRequest) ([]ReplyView, error)
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error)
}

// forumService implements ForumService.
type forumService struct {
	repo     ForumRepository
	identity accounts.IdentityResolver
	audit    audit.Recorder
}

// NewForumService creates a new forum service with the given dependencies.
func NewForumService(repo ForumRepository, identity accounts.IdentityResolver, recorder audit.Recorder) ForumService {
	return &forumService{
		repo:     repo,
		identity: identity,
		audit:    recorder,
	}
}

// Index returns a page of forum summaries. Public forums are always
// listed. With includePrivate set, private forums the caller is authorized
// for are listed too; for anonymous callers that filter changes nothing.
func (s *forumService) Index(ctx context.Context, token string, offset, limit int, includePrivate bool) ([]ForumSummary, error) {
	offset, limit = clampPage(offset, limit)

	actor, err := s.identity.OptionalActor(ctx, token)
	if err != nil {
		return nil, err
	}

	forums, err := s.repo.ListForums(ctx, offset, limit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing forums: %w", err))
	}

	summaries := make([]ForumSummary, 0, len(forums))
	for _, f := range forums {
		if !f.IsPublic() {
			if !includePrivate || !authz.Authorized(f.Whitelist, actor) {
				continue
			}
		}
		summaries = append(summaries, ForumSummary{
			ID:          f.ID,
			Name:        f.Name,
			Description: f.Description,
			Public:      f.IsPublic(),
		})
	}

	return summaries, nil
}

// Posts returns a page of a forum's post index, resolving author
// identifiers for display.
func (s *forumService) Posts(ctx context.Context, req PostIndexRequest) ([]PostSummary, error) {
	if !isUUID(req.ForumID) {
		return nil, apperror.NewBadRequest("invalid forum id")
	}
	offset, limit := clampPage(req.Offset, req.Limit)

	forum, err := s.repo.FindForum(ctx, req.ForumID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeForum(ctx, forum, req.SessionID); err != nil {
		return nil, err
	}

	posts, err := s.repo.ListPosts(ctx, forum.ID, offset, limit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing posts: %w", err))
	}

	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		author, err := s.identity.Identifier(ctx, p.AuthorID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, PostSummary{
			ID:        p.ID,
			Title:     p.Title,
			Author:    author,
			Timestamp: p.CreatedAt,
		})
	}

	return summaries, nil
}

// Post returns a single post's body after the forum visibility check.
func (s *forumService) Post(ctx context.Context, req PostRequest) (*PostView, error) {
	if !isUUID(req.PostID) {
		return nil, apperror.NewBadRequest("invalid post id")
	}

	post, err := s.repo.FindPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	forum, err := s.repo.FindForum(ctx, post.ForumID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeForum(ctx, forum, req.SessionID); err != nil {
		return nil, err
	}

	author, err := s.identity.Identifier(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}

	return &PostView{
		ID:        post.ID,
		Title:     post.Title,
		Author:    author,
		Body:      post.Body,
		Timestamp: post.CreatedAt,
	}, nil
}

// Replies returns a page of replies under a parent within a post, after
// the post's forum visibility check.
func (s *forumService) Replies(ctx context.Context, req RepliesRequest) ([]ReplyView, error) {
	if !isUUID(req.PostID) {
		return nil, apperror.NewBadRequest("invalid post id")
	}
	if req.Parent != "" && !isUUID(req.Parent) {
		return nil, apperror.NewBadRequest("invalid parent id")
	}
	offset, limit := clampPage(req.Offset, req.Limit)

	post, err := s.repo.FindPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	forum, err := s.repo.FindForum(ctx, post.ForumID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeForum(ctx, forum, req.SessionID); err != nil {
		return nil, err
	}

	replies, err := s.repo.ListReplies(ctx, post.ID, req.Parent, offset, limit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing replies: %w", err))
	}

	views := make([]ReplyView, 0, len(replies))
	for _, rep := range replies {
		author, err := s.identity.Identifier(ctx, rep.AuthorID)
		if err != nil {
			return nil, err
		}
		views = append(views, ReplyView{
			ID:        rep.ID,
			Author:    author,
			Body:      rep.Body,
			Timestamp: rep.CreatedAt,
		})
	}

	return views, nil
}

// CreatePost writes a new post. Posting always requires a live session,
// and the author must be authorized for the target forum.
func (s *forumService) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if !isUUID(req.ForumID) {
		return nil, apperror.NewBadRequest("invalid forum id")
	}

	actor, sess, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	forum, err := s.repo.FindForum(ctx, req.ForumID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorized(forum.Whitelist, actor) {
		return nil, apperror.NewForbidden("you are not authorized to access this forum")
	}

	title := sanitize.Title(req.Title)
	body := sanitize.Body(req.Body)
	if title == "" {
		return nil, apperror.NewValidation("title is required")
	}
	if body == "" {
		return nil, apperror.NewValidation("body is required")
	}

	post := &Post{
		ID:        uuid.NewString(),
		ForumID:   forum.ID,
		AuthorID:  actor.UserID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating post: %w", err))
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:    actor.UserID,
		SessionID: sess.ID,
		Action:    audit.ActionPostCreated,
		Detail:    fmt.Sprintf("post %s in forum %s", post.ID, forum.ID),
	})

	return post, nil
}

// CreateReply writes a new reply under a post, optionally nested below a
// parent reply.
func (s *forumService) CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error) {
	if !isUUID(req.PostID) {
		return nil, apperror.NewBadRequest("invalid post id")
	}
	if req.Parent != "" && !isUUID(req.Parent) {
		return nil, apperror.NewBadRequest("invalid parent id")
	}

	actor, sess, err := s.identity.RequireActor(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.FindPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	forum, err := s.repo.FindForum(ctx, post.ForumID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorized(forum.Whitelist, actor) {
		return nil, apperror.NewForbidden("you are not authorized to access this forum")
	}

	if req.Parent != "" {
		parent, err := s.repo.FindReply(ctx, req.Parent)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, apperror.NewBadRequest("parent reply belongs to a different post")
		}
	}

	body := sanitize.Body(req.Body)
	if body == "" {
		return nil, apperror.NewValidation("body is required")
	}

	reply := &Reply{
		ID:            uuid.NewString(),
		PostID:        post.ID,
		ParentReplyID: req.Parent,
		AuthorID:      actor.UserID,
		Body:          body,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateReply(ctx, reply); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating reply: %w", err))
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:    actor.UserID,
		SessionID: sess.ID,
		Action:    audit.ActionReplyCreated,
		Detail:    fmt.Sprintf("reply %s on post %s", reply.ID, post.ID),
	})

	return reply, nil
}

// authorizeForum runs the fixed resolve-then-authorize protocol for a
// read. A dead token degrades to an anonymous caller; the visibility rule
// then decides.
func (s *forumService) authorizeForum(ctx context.Context, forum *Forum, token string) error {
	actor, err := s.identity.OptionalActor(ctx, token)
	if err != nil {
		return err
	}
	if !authz.Authorized(forum.Whitelist, actor) {
		return apperror.NewForbidden("you are not authorized to access this forum")
	}
	return nil
}

// clampPage bounds offset and limit to sane values.
func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

// isUUID reports whether s parses as a UUID. Resource ids are opaque to
// clients but validated at the edge to keep junk out of queries.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
