package forums

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/authz"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/session"
)

// --- Mock Repository ---

// mockForumRepo implements ForumRepository for testing.
type mockForumRepo struct {
	listForumsFn  func(ctx context.Context, offset, limit int) ([]Forum, error)
	findForumFn   func(ctx context.Context, id string) (*Forum, error)
	listPostsFn   func(ctx context.Context, forumID string, offset, limit int) ([]Post, error)
	findPostFn    func(ctx context.Context, id string) (*Post, error)
	createPostFn  func(ctx context.Context, post *Post) error
	listRepliesFn func(ctx context.Context, postID, parentID string, offset, limit int) ([]Reply, error)
	findReplyFn   func(ctx context.Context, id string) (*Reply, error)
	createReplyFn func(ctx context.Context, reply *Reply) error
}

func (m *mockForumRepo) ListForums(ctx context.Context, offset, limit int) ([]Forum, error) {
	if m.listForumsFn != nil {
		return m.listForumsFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockForumRepo) FindForum(ctx context.Context, id string) (*Forum, error) {
	if m.findForumFn != nil {
		return m.findForumFn(ctx, id)
	}
	return nil, apperror.NewNotFound("forum not found")
}

func (m *mockForumRepo) ListPosts(ctx context.Context, forumID string, offset, limit int) ([]Post, error) {
	if m.listPostsFn != nil {
		return m.listPostsFn(ctx, forumID, offset, limit)
	}
	return nil, nil
}

func (m *mockForumRepo) FindPost(ctx context.Context, id string) (*Post, error) {
	if m.findPostFn != nil {
		return m.findPostFn(ctx, id)
	}
	return nil, apperror.NewNotFound("post not found")
}

func (m *mockForumRepo) CreatePost(ctx context.Context, post *Post) error {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, post)
	}
	return nil
}

func (m *mockForumRepo) ListReplies(ctx context.Context, postID, parentID string, offset, limit int) ([]Reply, error) {
	if m.listRepliesFn != nil {
		return m.listRepliesFn(ctx, postID, parentID, offset, limit)
	}
	return nil, nil
}

func (m *mockForumRepo) FindReply(ctx context.Context, id string) (*Reply, error) {
	if m.findReplyFn != nil {
		return m.findReplyFn(ctx, id)
	}
	return nil, apperror.NewNotFound("reply not found")
}

func (m *mockForumRepo) CreateReply(ctx context.Context, reply *Reply) error {
	if m.createReplyFn != nil {
		return m.createReplyFn(ctx, reply)
	}
	return nil
}

// --- Mock Identity Resolver ---

// mockIdentity implements accounts.IdentityResolver with a fixed set of
// tokens. Unknown tokens behave like dead sessions.
type mockIdentity struct {
	actors map[string]*authz.Actor
}

func (m *mockIdentity) RequireActor(ctx context.Context, token string) (*authz.Actor, session.Session, error) {
	if actor, ok := m.actors[token]; ok {
		return actor, session.Session{ID: token, UserID: actor.UserID}, nil
	}
	return nil, session.Session{}, apperror.NewUnauthorized("invalid session id or session timed out")
}

func (m *mockIdentity) OptionalActor(ctx context.Context, token string) (*authz.Actor, error) {
	if actor, ok := m.actors[token]; ok {
		return actor, nil
	}
	return nil, nil
}

func (m *mockIdentity) Identifier(ctx context.Context, userID string) (string, error) {
	return "user-" + userID, nil
}

// --- Mock Recorder ---

type mockRecorder struct {
	entries []audit.Entry
}

func (m *mockRecorder) Record(ctx context.Context, entry audit.Entry) {
	m.entries = append(m.entries, entry)
}

// --- Test Helpers ---

const (
	memberToken = "token-member"
	otherToken  = "token-other"
	adminToken  = "token-admin"

	forumID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	postID  = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	replyID = "cccccccc-cccc-cccc-cccc-cccccccccccc"
)

func newTestForumService(repo *mockForumRepo) (*forumService, *mockRecorder) {
	recorder := &mockRecorder{}
	identity := &mockIdentity{actors: map[string]*authz.Actor{
		memberToken: {UserID: "member-1", Tier: authz.RegisteredUser},
		otherToken:  {UserID: "other-1", Tier: authz.RegisteredUser},
		adminToken:  {UserID: "admin-1", Tier: authz.Administrator},
	}}
	return &forumService{
		repo:     repo,
		identity: identity,
		audit:    recorder,
	}, recorder
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func publicForum() *Forum {
	return &Forum{ID: forumID, Name: "general", CreatedAt: time.Now().UTC()}
}

func privateForum() *Forum {
	return &Forum{
		ID:        forumID,
		Name:      "staff",
		Whitelist: []string{"member-1"},
		CreatedAt: time.Now().UTC(),
	}
}

// --- Index Tests ---

func TestIndex_AnonymousSeesOnlyPublic(t *testing.T) {
	repo := &mockForumRepo{
		listForumsFn: func(ctx context.Context, offset, limit int) ([]Forum, error) {
			return []Forum{*publicForum(), *privateForum()}, nil
		},
	}

	svc, _ := newTestForumService(repo)
	summaries, err := svc.Index(context.Background(), "", 0, 20, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 forum, got %d", len(summaries))
	}
	if !summaries[0].Public {
		t.Error("expected the public forum")
	}
}

func TestIndex_MemberSeesPrivateWithFilter(t *testing.T) {
	repo := &mockForumRepo{
		listForumsFn: func(ctx context.Context, offset, limit int) ([]Forum, error) {
			return []Forum{*publicForum(), *privateForum()}, nil
		},
	}

	svc, _ := newTestForumService(repo)

	// Without the filter, private forums are hidden even from members.
	summaries, err := svc.Index(context.Background(), memberToken, 0, 20, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 forum without the filter, got %d", len(summaries))
	}

	summaries, err = svc.Index(context.Background(), memberToken, 0, 20, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 forums with the filter, got %d", len(summaries))
	}
}

func TestIndex_AdminSeesAllPrivate(t *testing.T) {
	repo := &mockForumRepo{
		listForumsFn: func(ctx context.Context, offset, limit int) ([]Forum, error) {
			return []Forum{*privateForum()}, nil
		},
	}

	svc, _ := newTestForumService(repo)
	summaries, err := svc.Index(context.Background(), adminToken, 0, 20, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected the admin to see the private forum, got %d forums", len(summaries))
	}
}

// --- Read Authorization Tests ---

func TestPosts_AnonymousReadsPublicForum(t *testing.T) {
	repo := &mockForumRepo{
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return publicForum(), nil
		},
		listPostsFn: func(ctx context.Context, fID string, offset, limit int) ([]Post, error) {
			return []Post{{ID: postID, ForumID: fID, AuthorID: "member-1", Title: "hello", CreatedAt: time.Now().UTC()}}, nil
		},
	}

	svc, _ := newTestForumService(repo)
	summaries, err := svc.Posts(context.Background(), PostIndexRequest{ForumID: forumID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 post, got %d", len(summaries))
	}
	if summaries[0].Author != "user-member-1" {
		t.Errorf("expected resolved author identifier, got %q", summaries[0].Author)
	}
}

func TestPosts_PrivateForumAccess(t *testing.T) {
	repo := &mockForumRepo{
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return privateForum(), nil
		},
	}

	svc, _ := newTestForumService(repo)

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"anonymous denied", "", 403},
		{"expired token treated as anonymous", "token-expired", 403},
		{"non-member denied", otherToken, 403},
		{"member allowed", memberToken, 0},
		{"admin allowed without membership", adminToken, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Posts(context.Background(), PostIndexRequest{ForumID: forumID, SessionID: tt.token})
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertAppError(t, err, tt.wantCode)
		})
	}
}

func TestPost_ChecksParentForum(t *testing.T) {
	repo := &mockForumRepo{
		findPostFn: func(ctx context.Context, id string) (*Post, error) {
			return &Post{ID: postID, ForumID: forumID, AuthorID: "member-1", Title: "hello", Body: "hi", CreatedAt: time.Now().UTC()}, nil
		},
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return privateForum(), nil
		},
	}

	svc, _ := newTestForumService(repo)

	_, err := svc.Post(context.Background(), PostRequest{PostID: postID})
	assertAppError(t, err, 403)

	view, err := svc.Post(context.Background(), PostRequest{PostID: postID, SessionID: memberToken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Body != "hi" {
		t.Errorf("expected post body, got %q", view.Body)
	}
}

func TestPosts_InvalidForumID(t *testing.T) {
	svc, _ := newTestForumService(&mockForumRepo{})
	_, err := svc.Posts(context.Background(), PostIndexRequest{ForumID: "not-a-uuid"})
	assertAppError(t, err, 400)
}

// --- Create Tests ---

func TestCreatePost_RequiresSession(t *testing.T) {
	repo := &mockForumRepo{
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return publicForum(), nil
		},
	}

	svc, _ := newTestForumService(repo)
	_, err := svc.CreatePost(context.Background(), CreatePostRequest{
		ForumID: forumID,
		Title:   "hello",
		Body:    "hi there",
	})
	// Posting to a public forum still needs a live session.
	assertAppError(t, err, 401)
}

func TestCreatePost_SanitizesAndRecords(t *testing.T) {
	var stored *Post
	repo := &mockForumRepo{
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return publicForum(), nil
		},
		createPostFn: func(ctx context.Context, post *Post) error {
			stored = post
			return nil
		},
	}

	svc, recorder := newTestForumService(repo)
	post, err := svc.CreatePost(context.Background(), CreatePostRequest{
		SessionID: memberToken,
		ForumID:   forumID,
		Title:     "hello <script>alert(1)</script>",
		Body:      "hi <script>alert(1)</script>there",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored == nil {
		t.Fatal("expected the post to be stored")
	}
	if stored.AuthorID != "member-1" {
		t.Errorf("author %s, want member-1", stored.AuthorID)
	}
	if post.Title == "" || post.Body == "" {
		t.Fatal("expected sanitized content to survive")
	}
	for _, field := range []string{post.Title, post.Body} {
		if containsScript(field) {
			t.Errorf("script tag survived sanitization: %q", field)
		}
	}

	if len(recorder.entries) != 1 || recorder.entries[0].Action != audit.ActionPostCreated {
		t.Errorf("expected one %s audit entry, got %+v", audit.ActionPostCreated, recorder.entries)
	}
}

func TestCreatePost_NonMemberOfPrivateForum(t *testing.T) {
	repo := &mockForumRepo{
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return privateForum(), nil
		},
	}

	svc, _ := newTestForumService(repo)
	_, err := svc.CreatePost(context.Background(), CreatePostRequest{
		SessionID: otherToken,
		ForumID:   forumID,
		Title:     "hello",
		Body:      "hi there",
	})
	assertAppError(t, err, 403)
}

func TestCreateReply_ParentMustMatchPost(t *testing.T) {
	repo := &mockForumRepo{
		findPostFn: func(ctx context.Context, id string) (*Post, error) {
			return &Post{ID: postID, ForumID: forumID, AuthorID: "member-1", CreatedAt: time.Now().UTC()}, nil
		},
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return publicForum(), nil
		},
		findReplyFn: func(ctx context.Context, id string) (*Reply, error) {
			// Parent hangs off a different post.
			return &Reply{ID: replyID, PostID: "dddddddd-dddd-dddd-dddd-dddddddddddd"}, nil
		},
	}

	svc, _ := newTestForumService(repo)
	_, err := svc.CreateReply(context.Background(), CreateReplyRequest{
		SessionID: memberToken,
		PostID:    postID,
		Parent:    replyID,
		Body:      "hi there",
	})
	assertAppError(t, err, 400)
}

func TestCreateReply_Success(t *testing.T) {
	var stored *Reply
	repo := &mockForumRepo{
		findPostFn: func(ctx context.Context, id string) (*Post, error) {
			return &Post{ID: postID, ForumID: forumID, AuthorID: "member-1", CreatedAt: time.Now().UTC()}, nil
		},
		findForumFn: func(ctx context.Context, id string) (*Forum, error) {
			return publicForum(), nil
		},
		createReplyFn: func(ctx context.Context, reply *Reply) error {
			stored = reply
			return nil
		},
	}

	svc, recorder := newTestForumService(repo)
	reply, err := svc.CreateReply(context.Background(), CreateReplyRequest{
		SessionID: memberToken,
		PostID:    postID,
		Body:      "hi there",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored == nil || stored.ID != reply.ID {
		t.Fatal("expected the reply to be stored")
	}
	if reply.ParentReplyID != "" {
		t.Errorf("expected a top-level reply, got parent %q", reply.ParentReplyID)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Action != audit.ActionReplyCreated {
		t.Errorf("expected one %s audit entry, got %+v", audit.ActionReplyCreated, recorder.entries)
	}
}

// containsScript reports whether a sanitized field still carries a script
// tag.
func containsScript(s string) bool {
	return strings.Contains(strings.ToLower(s), "<script")
}
