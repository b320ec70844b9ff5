package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/eclassroom/eclass/internal/platform/id"
)

// Status is the lifecycle state of an e-class.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusCanceled   Status = "canceled"
)

// ParseStatus maps a display or stored status name to a Status.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "planned":
		return StatusPlanned, true
	case "in_progress", "in-progress", "inprogress":
		return StatusInProgress, true
	case "finished":
		return StatusFinished, true
	case "canceled", "cancelled":
		return StatusCanceled, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCanceled
}

// CanTransitionTo reports whether to is a legal next status.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPlanned:
		return to == StatusInProgress || to == StatusCanceled
	case StatusInProgress:
		return to == StatusFinished || to == StatusCanceled
	default:
		return false
	}
}

// SchoolYear is the cohort an e-class is addressed to.
type SchoolYear string

const (
	SchoolYearL1 SchoolYear = "L1"
	SchoolYearL2 SchoolYear = "L2"
	SchoolYearL3 SchoolYear = "L3"
)

// SchoolYears lists every known cohort in order.
var SchoolYears = []SchoolYear{SchoolYearL1, SchoolYearL2, SchoolYearL3}

// Valid reports whether y is a known cohort.
func (y SchoolYear) Valid() bool {
	return slices.Contains(SchoolYears, y)
}

// Place is where an e-class is held.
type Place string

const (
	PlaceInPlatform   Place = "in-platform"
	PlaceExternalLink Place = "external-link"
	PlaceInPerson     Place = "in-person"
)

// Subject is the course an e-class belongs to.
type Subject struct {
	Name           string
	SchoolYear     SchoolYear
	TextChannelID  string
	VoiceChannelID string
	Emoji          string
}

// Eclass is one scheduled teaching session.
type Eclass struct {
	ID       string
	Start    time.Time
	Duration time.Duration

	Subject          Subject
	Topic            string
	Place            Place
	PlaceInformation string

	ProfessorID string
	Subscribers []string

	AnnouncementChannelID string
	AnnouncementMessageID string
	ClassRoleID           string
	TargetRoleID          string
	RoleName              string

	IsRecorded  bool
	RecordLinks []string

	Status   Status
	Reminded bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// End returns the instant the e-class ends.
func (e Eclass) End() time.Time {
	return e.Start.Add(e.Duration)
}

// SchoolYear returns the cohort of the e-class subject.
func (e Eclass) SchoolYear() SchoolYear {
	return e.Subject.SchoolYear
}

// ClassChannelID returns the subject text channel bound to the e-class.
func (e Eclass) ClassChannelID() string {
	return e.Subject.TextChannelID
}

// HasSubscriber reports whether userID is subscribed.
func (e Eclass) HasSubscriber(userID string) bool {
	return slices.Contains(e.Subscribers, userID)
}

// ClassID derives the identifier of the e-class given by professorID at start.
func ClassID(professorID string, start time.Time) string {
	return id.Derive(professorID, start.UTC().Format(time.RFC3339Nano))
}

// Page is one page of a listing.
type Page struct {
	Eclasses      []Eclass
	NextPageToken string
}

// Content is a rendered chat message.
type Content struct {
	Text  string
	Embed *Embed
}

// Embed is the structured card attached to a message.
type Embed struct {
	Title       string
	Description string
	Author      string
	Footer      string
	Thumbnail   string
	Color       int
	Fields      []EmbedField
}

// EmbedField is one labeled value of an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}
