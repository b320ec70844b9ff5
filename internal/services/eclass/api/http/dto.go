package httpapi

import (
	"time"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

type subjectRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	SchoolYear     string `json:"school_year" validate:"required"`
	TextChannelID  string `json:"text_channel_id" validate:"required"`
	VoiceChannelID string `json:"voice_channel_id"`
	Emoji          string `json:"emoji"`
}

type createRequest struct {
	// ProfessorID may only differ from the caller for staff.
	ProfessorID      string         `json:"professor_id"`
	Subject          subjectRequest `json:"subject" validate:"required"`
	Topic            string         `json:"topic" validate:"required"`
	Start            time.Time      `json:"start" validate:"required"`
	DurationMinutes  int            `json:"duration_minutes" validate:"required,gt=0"`
	Place            string         `json:"place" validate:"required"`
	PlaceInformation string         `json:"place_information"`
	IsRecorded       bool           `json:"is_recorded"`
	TargetRoleID     string         `json:"target_role_id"`
}

type updateRequest struct {
	Topic            *string    `json:"topic"`
	Start            *time.Time `json:"start"`
	DurationMinutes  *int       `json:"duration_minutes" validate:"omitnil,gt=0"`
	Place            *string    `json:"place"`
	PlaceInformation *string    `json:"place_information"`
	IsRecorded       *bool      `json:"is_recorded"`
}

type recordLinkRequest struct {
	Link   string `json:"link" validate:"required"`
	Silent bool   `json:"silent"`
}

type eclassResponse struct {
	ID                    string    `json:"id"`
	Status                string    `json:"status"`
	ProfessorID           string    `json:"professor_id"`
	Subject               subject   `json:"subject"`
	Topic                 string    `json:"topic"`
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	DurationMinutes       int       `json:"duration_minutes"`
	Place                 string    `json:"place"`
	PlaceInformation      string    `json:"place_information,omitempty"`
	IsRecorded            bool      `json:"is_recorded"`
	RecordLinks           []string  `json:"record_links"`
	Subscribers           []string  `json:"subscribers"`
	Reminded              bool      `json:"reminded"`
	AnnouncementChannelID string    `json:"announcement_channel_id"`
	AnnouncementMessageID string    `json:"announcement_message_id"`
	ClassRoleID           string    `json:"class_role_id"`
	TargetRoleID          string    `json:"target_role_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type subject struct {
	Name           string `json:"name"`
	SchoolYear     string `json:"school_year"`
	TextChannelID  string `json:"text_channel_id"`
	VoiceChannelID string `json:"voice_channel_id,omitempty"`
	Emoji          string `json:"emoji,omitempty"`
}

type listResponse struct {
	Eclasses      []eclassResponse `json:"eclasses"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type upcomingResponse struct {
	SchoolYear string           `json:"school_year"`
	Eclasses   []eclassResponse `json:"eclasses"`
	Digest     string           `json:"digest"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (r createRequest) toInput(professorID string) domain.CreateInput {
	return domain.CreateInput{
		ProfessorID: professorID,
		Subject: domain.Subject{
			Name:           r.Subject.Name,
			SchoolYear:     domain.SchoolYear(r.Subject.SchoolYear),
			TextChannelID:  r.Subject.TextChannelID,
			VoiceChannelID: r.Subject.VoiceChannelID,
			Emoji:          r.Subject.Emoji,
		},
		Topic:            r.Topic,
		Start:            r.Start,
		Duration:         time.Duration(r.DurationMinutes) * time.Minute,
		Place:            domain.Place(r.Place),
		PlaceInformation: r.PlaceInformation,
		IsRecorded:       r.IsRecorded,
		TargetRoleID:     r.TargetRoleID,
	}
}

func (r updateRequest) toInput(classID string, actor domain.Actor) domain.UpdateInput {
	input := domain.UpdateInput{
		ClassID:          classID,
		Actor:            actor,
		Topic:            r.Topic,
		Start:            r.Start,
		PlaceInformation: r.PlaceInformation,
		IsRecorded:       r.IsRecorded,
	}
	if r.DurationMinutes != nil {
		d := time.Duration(*r.DurationMinutes) * time.Minute
		input.Duration = &d
	}
	if r.Place != nil {
		p := domain.Place(*r.Place)
		input.Place = &p
	}
	return input
}

func toResponse(e domain.Eclass) eclassResponse {
	links := e.RecordLinks
	if links == nil {
		links = []string{}
	}
	subscribers := e.Subscribers
	if subscribers == nil {
		subscribers = []string{}
	}
	return eclassResponse{
		ID:          e.ID,
		Status:      string(e.Status),
		ProfessorID: e.ProfessorID,
		Subject: subject{
			Name:           e.Subject.Name,
			SchoolYear:     string(e.Subject.SchoolYear),
			TextChannelID:  e.Subject.TextChannelID,
			VoiceChannelID: e.Subject.VoiceChannelID,
			Emoji:          e.Subject.Emoji,
		},
		Topic:                 e.Topic,
		Start:                 e.Start.UTC(),
		End:                   e.End().UTC(),
		DurationMinutes:       int(e.Duration / time.Minute),
		Place:                 string(e.Place),
		PlaceInformation:      e.PlaceInformation,
		IsRecorded:            e.IsRecorded,
		RecordLinks:           links,
		Subscribers:           subscribers,
		Reminded:              e.Reminded,
		AnnouncementChannelID: e.AnnouncementChannelID,
		AnnouncementMessageID: e.AnnouncementMessageID,
		ClassRoleID:           e.ClassRoleID,
		TargetRoleID:          e.TargetRoleID,
		CreatedAt:             e.CreatedAt.UTC(),
		UpdatedAt:             e.UpdatedAt.UTC(),
	}
}

func toResponses(eclasses []domain.Eclass) []eclassResponse {
	out := make([]eclassResponse, 0, len(eclasses))
	for _, e := range eclasses {
		out = append(out, toResponse(e))
	}
	return out
}
