// Package mail implements direct messages between registered users.
// Unlike forums there is no anonymous path: every operation requires a
// live session, and a dead token is reported as unauthorized rather than
// degraded to a guest.
package mail

import "time"

// Message represents a stored direct message between two users.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"-"`
	RecipientID string    `json:"-"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Read        bool      `json:"read"`
	Flagged     bool      `json:"flagged"`
	CreatedAt   time.Time `json:"timestamp"`
}

// MessageSummary is a mailbox listing row. Other carries the display
// identifier of the counterparty: the sender for inbox rows, the
// recipient for outbox rows.
type MessageSummary struct {
	ID        string    `json:"id"`
	Other     string    `json:"other"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Unread    bool      `json:"unread"`
	Flagged   bool      `json:"flagged"`
}

// MessageView is the full single-message payload with both parties
// resolved to display identifiers.
type MessageView struct {
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Flagged   bool      `json:"flagged"`
}

// --- Request DTOs ---

// SendRequest carries a new message. The recipient is addressed by
// display identifier (username), not by user id.
type SendRequest struct {
	SessionID string `form:"sessionId" json:"sessionId"`
	Recipient string `form:"recipient" json:"recipient"`
	Subject   string `form:"subject" json:"subject"`
	Body      string `form:"body" json:"body"`
}

// InboxRequest pages the caller's received messages, optionally
// narrowed to unread or flagged ones.
type InboxRequest struct {
	SessionID    string `form:"sessionId" json:"sessionId"`
	Offset       int    `form:"offset" json:"offset"`
	Limit        int    `form:"messageLimit" json:"messageLimit"`
	FilterUnread bool   `form:"filterUnread" json:"filterUnread"`
	FilterFlag   bool   `form:"filterFlagged" json:"filterFlagged"`
}

// OutboxRequest pages the caller's sent messages.
type OutboxRequest struct {
	SessionID string `form:"sessionId" json:"sessionId"`
	Offset    int    `form:"offset" json:"offset"`
	Limit     int    `form:"messageLimit" json:"messageLimit"`
}

// MessageRequest fetches a single message by id.
type MessageRequest struct {
	SessionID string `form:"sessionId" json:"sessionId"`
	MessageID string `form:"msgId" json:"msgId"`
}

// MarkRequest sets the read and flagged marks on a message. Both marks
// are written as given; the request states the full desired state.
type MarkRequest struct {
	SessionID string `form:"sessionId" json:"sessionId"`
	MessageID string `form:"messageId" json:"messageId"`
	Read      bool   `form:"markRead" json:"markRead"`
	Flagged   bool   `form:"markFlagged" json:"markFlagged"`
}
