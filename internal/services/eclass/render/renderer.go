// Package render builds localized chat content for e-classes.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

// Embed colors.
const (
	ColorPrimary  = 0x5bb78f
	ColorDefault  = 0x439bf2
	ColorPlanned  = 0x32a852
	ColorStarted  = 0xf27938
	ColorCanceled = 0xeb2d1c
)

// MaxRoleNameLength is the longest role name the chat platform accepts.
const MaxRoleNameLength = 100

var supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(supported)

// Renderer renders e-class content in one locale and time zone. It
// satisfies domain.Renderer.
type Renderer struct {
	printer  *message.Printer
	location *time.Location
}

var _ domain.Renderer = (*Renderer)(nil)

// New returns a renderer for the closest supported locale to lang. A nil
// location renders times in UTC.
func New(lang string, location *time.Location) (*Renderer, error) {
	tag := language.English
	if strings.TrimSpace(lang) != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", lang, err)
		}
		_, index, _ := matcher.Match(parsed)
		tag = supported[index]
	}
	if location == nil {
		location = time.UTC
	}
	return &Renderer{printer: message.NewPrinter(tag), location: location}, nil
}

// Announcement renders the announcement of e for its current status.
func (r *Renderer) Announcement(e domain.Eclass) domain.Content {
	content := domain.Content{Text: r.announcementText(e)}
	if e.Status == domain.StatusCanceled {
		content.Embed = &domain.Embed{
			Title:       r.printer.Sprintf("eclass.embed.title", e.Subject.Name, e.Topic),
			Description: r.printer.Sprintf("eclass.embed.canceled"),
			Author:      r.printer.Sprintf("eclass.embed.author"),
			Footer:      r.printer.Sprintf("eclass.embed.footer", e.ID),
			Thumbnail:   e.Subject.Emoji,
			Color:       ColorCanceled,
		}
		return content
	}

	color := ColorPlanned
	dateValue := r.printer.Sprintf("eclass.embed.date_value", r.date(e.Start), r.hour(e.End()))
	switch e.Status {
	case domain.StatusInProgress:
		color = ColorStarted
		dateValue = r.printer.Sprintf("eclass.embed.date_in_progress", r.hour(e.Start), r.hour(e.End()))
	case domain.StatusFinished:
		color = ColorDefault
		dateValue = r.printer.Sprintf("eclass.embed.date_finished", r.date(e.Start), r.hour(e.End()))
	}

	content.Embed = &domain.Embed{
		Title:       r.printer.Sprintf("eclass.embed.title", e.Subject.Name, e.Topic),
		Description: r.printer.Sprintf("eclass.embed.description", e.Subject.Name, channel(e.ClassChannelID()), r.date(e.Start)),
		Author:      r.printer.Sprintf("eclass.embed.author"),
		Footer:      r.printer.Sprintf("eclass.embed.footer", e.ID),
		Thumbnail:   e.Subject.Emoji,
		Color:       color,
		Fields: []domain.EmbedField{
			{Name: r.printer.Sprintf("eclass.embed.date"), Value: dateValue, Inline: true},
			{Name: r.printer.Sprintf("eclass.embed.duration"), Value: r.duration(e.Duration), Inline: true},
			{Name: r.printer.Sprintf("eclass.embed.professor"), Value: user(e.ProfessorID), Inline: true},
			{Name: r.printer.Sprintf("eclass.embed.recorded"), Value: r.recorded(e), Inline: true},
			{Name: r.printer.Sprintf("eclass.embed.place"), Value: r.where(e), Inline: true},
		},
	}
	return content
}

func (r *Renderer) announcementText(e domain.Eclass) string {
	alert := ""
	if e.Place != domain.PlaceInPlatform {
		alert = r.printer.Sprintf("eclass.announcement.place_alert", r.where(e))
	}
	return r.printer.Sprintf("eclass.announcement.text", role(e.TargetRoleID), alert)
}

// StartNotice renders the message posted in the class channel at start.
func (r *Renderer) StartNotice(e domain.Eclass) domain.Content {
	recorded := r.printer.Sprintf("eclass.start.not_recorded")
	if e.IsRecorded {
		recorded = r.printer.Sprintf("eclass.start.recorded")
	}
	channels := r.printer.Sprintf("eclass.start.text_channel", channel(e.Subject.TextChannelID))
	if e.Subject.VoiceChannelID != "" {
		channels = r.printer.Sprintf("eclass.start.all_channels", channel(e.Subject.TextChannelID), channel(e.Subject.VoiceChannelID))
	}
	return domain.Content{
		Text: r.printer.Sprintf("eclass.start.notification", role(e.ClassRoleID)),
		Embed: &domain.Embed{
			Title:       r.printer.Sprintf("eclass.start.title", e.Topic),
			Author:      r.printer.Sprintf("eclass.embed.author"),
			Description: r.printer.Sprintf("eclass.start.description", user(e.ProfessorID), r.where(e), channels, recorded),
			Footer:      r.printer.Sprintf("eclass.embed.footer", e.ID),
			Color:       ColorPrimary,
		},
	}
}

// RecordLinkNotice renders the class channel message for a new recording.
func (r *Renderer) RecordLinkNotice(e domain.Eclass, link string) domain.Content {
	return domain.Content{Text: r.printer.Sprintf("eclass.record.link_announcement", e.Topic, r.date(e.Start), link)}
}

// ProfessorReminder renders the direct reminder sent to the professor.
func (r *Renderer) ProfessorReminder(e domain.Eclass) domain.Content {
	checklist := r.printer.Sprintf("eclass.reminder.professor_not_recorded")
	if e.IsRecorded {
		checklist = r.printer.Sprintf("eclass.reminder.professor_recorded", e.ID)
	}
	return domain.Content{Text: r.printer.Sprintf("eclass.reminder.professor",
		e.Topic, r.hour(e.Start), r.where(e), checklist)}
}

// ChannelReminder renders the reminder posted in the class channel.
func (r *Renderer) ChannelReminder(e domain.Eclass) domain.Content {
	return domain.Content{Text: r.printer.Sprintf("eclass.reminder.channel",
		role(e.ClassRoleID), e.Topic, user(e.ProfessorID), r.hour(e.Start), r.where(e))}
}

// SubscriberReminder renders the direct reminder sent to subscribers.
func (r *Renderer) SubscriberReminder(e domain.Eclass) domain.Content {
	return domain.Content{Text: r.printer.Sprintf("eclass.reminder.subscriber",
		e.Topic, e.Subject.Name, r.hour(e.Start), r.where(e))}
}

// Subscribed renders the subscription confirmation.
func (r *Renderer) Subscribed(e domain.Eclass) domain.Content {
	return domain.Content{Text: r.printer.Sprintf("eclass.subscribed", e.Topic, r.date(e.Start))}
}

// Unsubscribed renders the unsubscription confirmation.
func (r *Renderer) Unsubscribed(e domain.Eclass) domain.Content {
	return domain.Content{Text: r.printer.Sprintf("eclass.unsubscribed", e.Topic, r.date(e.Start))}
}

// RoleName returns "{subject}: {topic} ({date})" shortened to fit
// MaxRoleNameLength. The date is kept whole; a long subject name gives up
// room until the topic holds at least half of what remains.
func (r *Renderer) RoleName(e domain.Eclass) string {
	date := r.date(e.Start)
	budget := MaxRoleNameLength - utf8.RuneCountInString(date) - len(": ") - len(" ()")
	subject, topic := e.Subject.Name, e.Topic
	subjectLen, topicLen := utf8.RuneCountInString(subject), utf8.RuneCountInString(topic)
	if subjectLen+topicLen > budget {
		topicRoom := max(budget-subjectLen, min(topicLen, budget/2))
		subject = trimText(subject, budget-topicRoom)
		topic = trimText(topic, topicRoom)
	}
	return fmt.Sprintf("%s: %s (%s)", subject, topic, date)
}

// UpcomingDigest renders the list of upcoming e-classes of a school year.
func (r *Renderer) UpcomingDigest(year domain.SchoolYear, eclasses []domain.Eclass) string {
	var b strings.Builder
	b.WriteString(r.printer.Sprintf("eclass.upcoming.header", string(year)))
	if len(eclasses) == 0 {
		b.WriteString(r.printer.Sprintf("eclass.upcoming.none"))
		return b.String()
	}
	for _, e := range eclasses {
		b.WriteString(r.printer.Sprintf("eclass.upcoming.line",
			r.date(e.Start), r.hour(e.End()), e.Topic, channel(e.ClassChannelID()), user(e.ProfessorID), role(e.TargetRoleID)))
	}
	return b.String()
}

// UpcomingBoard renders the pinned upcoming-classes board of a school year.
func (r *Renderer) UpcomingBoard(year domain.SchoolYear, eclasses []domain.Eclass) domain.Content {
	return domain.Content{Text: r.UpcomingDigest(year, eclasses)}
}

// RejectionMessage returns the user-facing text of a rejection code.
func (r *Renderer) RejectionMessage(code apperrors.Code) string {
	key := "error." + string(code)
	text := r.printer.Sprintf(key)
	if text == key {
		return r.printer.Sprintf("error." + string(apperrors.CodeUnknown))
	}
	return text
}

func (r *Renderer) where(e domain.Eclass) string {
	switch e.Place {
	case domain.PlaceExternalLink:
		return r.printer.Sprintf("eclass.place.external_link", e.PlaceInformation)
	case domain.PlaceInPerson:
		return r.printer.Sprintf("eclass.place.in_person", e.PlaceInformation)
	default:
		voice := e.Subject.VoiceChannelID
		if voice == "" {
			return r.printer.Sprintf("eclass.place.in_platform_text", channel(e.Subject.TextChannelID))
		}
		return r.printer.Sprintf("eclass.place.in_platform", channel(voice))
	}
}

func (r *Renderer) recorded(e domain.Eclass) string {
	value := r.printer.Sprintf("eclass.recorded.no")
	if e.IsRecorded {
		value = r.printer.Sprintf("eclass.recorded.yes")
	}
	if len(e.RecordLinks) == 0 {
		return value
	}
	links := make([]string, 0, len(e.RecordLinks))
	for _, link := range e.RecordLinks {
		links = append(links, r.printer.Sprintf("eclass.recorded.link", link))
	}
	return value + "\n" + strings.Join(links, ", ")
}

func (r *Renderer) date(t time.Time) string {
	return t.In(r.location).Format(r.printer.Sprintf("eclass.layout.date"))
}

func (r *Renderer) hour(t time.Time) string {
	return t.In(r.location).Format("15:04")
}

func (r *Renderer) duration(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	switch {
	case hours == 0:
		return r.printer.Sprintf("eclass.duration.minutes", minutes)
	case minutes == 0:
		return r.printer.Sprintf("eclass.duration.hours", hours)
	default:
		return r.printer.Sprintf("eclass.duration.hours_minutes", hours, minutes)
	}
}

func trimText(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}

func user(id string) string    { return "<@" + id + ">" }
func role(id string) string    { return "<@&" + id + ">" }
func channel(id string) string { return "<#" + id + ">" }
