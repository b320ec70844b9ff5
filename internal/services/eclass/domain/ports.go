package domain

import (
	"context"
	"time"
)

// Store is the persistence boundary for e-class records. Every mutating
// method is atomic on a single record.
type Store interface {
	// Insert persists a new record. It returns ErrConflict when the id exists.
	Insert(ctx context.Context, e Eclass) error
	Get(ctx context.Context, classID string) (Eclass, error)
	FindByAnnouncementMessage(ctx context.Context, messageID string) (Eclass, error)
	// ListOverlapping returns planned records whose window intersects
	// [start, end), excluding excludeID when set.
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Eclass, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Eclass, error)
	// List returns records matching an AIP-160 filter, ordered by start then
	// id. A malformed filter wraps ErrInvalidFilter and a malformed token
	// wraps ErrInvalidPageToken.
	List(ctx context.Context, filter string, pageSize int, pageToken string) (Page, error)
	// TransitionStatus sets the status to `to` only if it currently equals
	// `from`; otherwise it returns ErrStatusConflict.
	TransitionStatus(ctx context.Context, classID string, from, to Status, at time.Time) error
	// MarkReminded sets the reminded flag and reports whether this call set it.
	MarkReminded(ctx context.Context, classID string, at time.Time) (bool, error)
	AddSubscriber(ctx context.Context, classID, userID string, at time.Time) error
	RemoveSubscriber(ctx context.Context, classID, userID string, at time.Time) error
	AppendRecordLink(ctx context.Context, classID, link string, at time.Time) error
	// RemoveRecordLink removes every occurrence of link.
	RemoveRecordLink(ctx context.Context, classID, link string, at time.Time) error
	// UpdateDetails rewrites the editable fields of a record (topic, window,
	// place, recorded flag, role name). It returns ErrStatusConflict when the
	// record is no longer planned.
	UpdateDetails(ctx context.Context, e Eclass) error
}

// BoardStore remembers the upcoming-classes message of each school year.
type BoardStore interface {
	// UpcomingBoard returns ErrNotFound when no board was posted yet.
	UpcomingBoard(ctx context.Context, year SchoolYear) (Board, error)
	SaveUpcomingBoard(ctx context.Context, board Board, at time.Time) error
}

// Board locates the upcoming-classes message of a school year.
type Board struct {
	SchoolYear SchoolYear
	ChannelID  string
	MessageID  string
}

// DeliveryResult is the outcome of one direct message in a bulk send.
type DeliveryResult struct {
	UserID string
	Err    error
}

// Gateway delivers messages to the chat platform.
type Gateway interface {
	SendToChannel(ctx context.Context, channelID string, content Content) (string, error)
	// EditMessage replaces the message content wholesale. It returns
	// ErrMessageNotFound when the message or its channel is gone.
	EditMessage(ctx context.Context, channelID, messageID string, content Content) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendDirect(ctx context.Context, userID string, content Content) error
	// BulkSendDirect never fails as a whole; each recipient gets an outcome.
	BulkSendDirect(ctx context.Context, userIDs []string, content Content) []DeliveryResult
}

// Platform manages roles and reactions on the chat platform.
type Platform interface {
	FindRoleByName(ctx context.Context, name string) (string, bool, error)
	RoleExists(ctx context.Context, roleID string) (bool, error)
	CreateRole(ctx context.Context, name string) (string, error)
	RenameRole(ctx context.Context, roleID, name string) error
	DeleteRole(ctx context.Context, roleID string) error
	MemberHasRole(ctx context.Context, userID, roleID string) (bool, error)
	GrantRole(ctx context.Context, userID, roleID string) error
	RevokeRole(ctx context.Context, userID, roleID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error
}

// Directory resolves per-cohort platform configuration.
type Directory interface {
	AnnouncementChannel(year SchoolYear) (string, bool)
	AudienceRole(year SchoolYear) (string, bool)
	// UpcomingChannel is where the upcoming-classes board of year lives.
	UpcomingChannel(year SchoolYear) (string, bool)
}

// Renderer builds chat content from e-class state. Implementations must be
// pure functions of their arguments.
type Renderer interface {
	Announcement(e Eclass) Content
	StartNotice(e Eclass) Content
	RecordLinkNotice(e Eclass, link string) Content
	ProfessorReminder(e Eclass) Content
	ChannelReminder(e Eclass) Content
	SubscriberReminder(e Eclass) Content
	Subscribed(e Eclass) Content
	Unsubscribed(e Eclass) Content
	RoleName(e Eclass) string
	UpcomingBoard(year SchoolYear, eclasses []Eclass) Content
}

// AnnouncementIndex tracks announcement messages that accept subscription
// reactions.
type AnnouncementIndex interface {
	Add(messageID string)
	Remove(messageID string)
	Contains(messageID string) bool
}
