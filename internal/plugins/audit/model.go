// Package audit provides a persisted audit log. Significant actions
// (logins, registrations, mail sends, post creation, tier changes) are
// captured as entries tied to the acting user and, when one exists, the
// session the action rode in on. Writes are fire-and-forget: an audit
// failure never blocks the primary operation.
package audit

import "time"

// --- Action constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	// ActionLogin is recorded on every successful login.
	ActionLogin = "auth.login"

	// ActionRegister is recorded when a new account is created.
	ActionRegister = "auth.register"

	// ActionLogout is recorded on explicit logout.
	ActionLogout = "auth.logout"

	// ActionMailSent is recorded when a direct message is sent.
	ActionMailSent = "mail.sent"

	// ActionPostCreated is recorded when a forum post is created.
	ActionPostCreated = "post.created"

	// ActionReplyCreated is recorded when a reply is created.
	ActionReplyCreated = "reply.created"

	// ActionTierChanged is recorded when an administrator changes a
	// user's permission tier.
	ActionTierChanged = "admin.tier_changed"
)

// Entry represents a single recorded action in the audit log.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Username is joined from the users table for display in the feed.
	// Not stored in audit_log -- populated at query time.
	Username string `json:"username,omitempty"`
}
