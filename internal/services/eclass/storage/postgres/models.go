package postgres

import (
	"time"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

type eclassRow struct {
	ID                    string `gorm:"primaryKey;size:64"`
	ProfessorID           string `gorm:"not null;size:64"`
	SubjectName           string `gorm:"not null"`
	SchoolYear            string `gorm:"not null;size:8"`
	TextChannelID         string `gorm:"not null;size:64"`
	VoiceChannelID        string `gorm:"not null;size:64"`
	SubjectEmoji          string `gorm:"not null"`
	Topic                 string `gorm:"not null"`
	StartMs               int64  `gorm:"column:start_ms;not null;index:idx_eclasses_status_start,priority:2"`
	EndMs                 int64  `gorm:"column:end_ms;not null"`
	DurationMs            int64  `gorm:"column:duration_ms;not null"`
	Place                 string `gorm:"not null;size:32"`
	PlaceInformation      string `gorm:"not null"`
	AnnouncementChannelID string `gorm:"not null;size:64"`
	AnnouncementMessageID string `gorm:"not null;size:64;uniqueIndex"`
	ClassRoleID           string `gorm:"not null;size:64"`
	TargetRoleID          string `gorm:"not null;size:64"`
	RoleName              string `gorm:"not null"`
	IsRecorded            bool   `gorm:"not null"`
	Status                string `gorm:"not null;size:16;index:idx_eclasses_status_start,priority:1"`
	Reminded              bool   `gorm:"not null"`
	CreatedAt             int64  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt             int64  `gorm:"not null;autoUpdateTime:false"`
}

func (eclassRow) TableName() string { return "eclasses" }

type boardRow struct {
	SchoolYear string `gorm:"primaryKey;size:8"`
	ChannelID  string `gorm:"not null;size:64"`
	MessageID  string `gorm:"not null;size:64"`
	UpdatedAt  int64  `gorm:"not null;autoUpdateTime:false"`
}

func (boardRow) TableName() string { return "eclass_upcoming_boards" }

type subscriberRow struct {
	EclassID  string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"primaryKey;size:64"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
}

func (subscriberRow) TableName() string { return "eclass_subscribers" }

type recordLinkRow struct {
	EclassID  string `gorm:"primaryKey;size:64"`
	Position  int    `gorm:"primaryKey;autoIncrement:false"`
	Link      string `gorm:"not null"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
}

func (recordLinkRow) TableName() string { return "eclass_record_links" }

func toRow(e domain.Eclass) eclassRow {
	return eclassRow{
		ID:                    e.ID,
		ProfessorID:           e.ProfessorID,
		SubjectName:           e.Subject.Name,
		SchoolYear:            string(e.Subject.SchoolYear),
		TextChannelID:         e.Subject.TextChannelID,
		VoiceChannelID:        e.Subject.VoiceChannelID,
		SubjectEmoji:          e.Subject.Emoji,
		Topic:                 e.Topic,
		StartMs:               toMillis(e.Start),
		EndMs:                 toMillis(e.End()),
		DurationMs:            e.Duration.Milliseconds(),
		Place:                 string(e.Place),
		PlaceInformation:      e.PlaceInformation,
		AnnouncementChannelID: e.AnnouncementChannelID,
		AnnouncementMessageID: e.AnnouncementMessageID,
		ClassRoleID:           e.ClassRoleID,
		TargetRoleID:          e.TargetRoleID,
		RoleName:              e.RoleName,
		IsRecorded:            e.IsRecorded,
		Status:                string(e.Status),
		Reminded:              e.Reminded,
		CreatedAt:             toMillis(e.CreatedAt),
		UpdatedAt:             toMillis(e.UpdatedAt),
	}
}

func (r eclassRow) toDomain() domain.Eclass {
	return domain.Eclass{
		ID:       r.ID,
		Start:    fromMillis(r.StartMs),
		Duration: time.Duration(r.DurationMs) * time.Millisecond,
		Subject: domain.Subject{
			Name:           r.SubjectName,
			SchoolYear:     domain.SchoolYear(r.SchoolYear),
			TextChannelID:  r.TextChannelID,
			VoiceChannelID: r.VoiceChannelID,
			Emoji:          r.SubjectEmoji,
		},
		Topic:                 r.Topic,
		Place:                 domain.Place(r.Place),
		PlaceInformation:      r.PlaceInformation,
		ProfessorID:           r.ProfessorID,
		AnnouncementChannelID: r.AnnouncementChannelID,
		AnnouncementMessageID: r.AnnouncementMessageID,
		ClassRoleID:           r.ClassRoleID,
		TargetRoleID:          r.TargetRoleID,
		RoleName:              r.RoleName,
		IsRecorded:            r.IsRecorded,
		Status:                domain.Status(r.Status),
		Reminded:              r.Reminded,
		CreatedAt:             fromMillis(r.CreatedAt),
		UpdatedAt:             fromMillis(r.UpdatedAt),
	}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
