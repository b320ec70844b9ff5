// Package postgres provides the PostgreSQL-backed e-class store built on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
	"github.com/eclassroom/eclass/internal/services/eclass/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store provides PostgreSQL-backed e-class persistence.
type Store struct {
	db *gorm.DB
}

var (
	_ domain.Store      = (*Store)(nil)
	_ domain.BoardStore = (*Store)(nil)
)

// Open connects to dsn and migrates the e-class tables.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         newQueryLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	if err := db.AutoMigrate(&eclassRow{}, &subscriberRow{}, &recordLinkRow{}, &boardRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the pooled connections.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) session(ctx context.Context) (*gorm.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return s.db.WithContext(ctx), nil
}

// Insert persists a new e-class with its subscribers and record links.
func (s *Store) Insert(ctx context.Context, e domain.Eclass) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("eclass id is required")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		row := toRow(e)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrConflict
			}
			return fmt.Errorf("insert eclass: %w", err)
		}
		if len(e.Subscribers) > 0 {
			subscribers := make([]subscriberRow, 0, len(e.Subscribers))
			for _, userID := range e.Subscribers {
				subscribers = append(subscribers, subscriberRow{EclassID: e.ID, UserID: userID, CreatedAt: row.CreatedAt})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&subscribers).Error; err != nil {
				return fmt.Errorf("insert subscribers: %w", err)
			}
		}
		if len(e.RecordLinks) > 0 {
			links := make([]recordLinkRow, 0, len(e.RecordLinks))
			for i, link := range e.RecordLinks {
				links = append(links, recordLinkRow{EclassID: e.ID, Position: i + 1, Link: link, CreatedAt: row.CreatedAt})
			}
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("insert record links: %w", err)
			}
		}
		return nil
	})
}

// Get returns one e-class by id.
func (s *Store) Get(ctx context.Context, classID string) (domain.Eclass, error) {
	db, err := s.session(ctx)
	if err != nil {
		return domain.Eclass{}, err
	}
	return s.first(db, db.Where("id = ?", classID))
}

// FindByAnnouncementMessage returns the e-class announced by messageID.
func (s *Store) FindByAnnouncementMessage(ctx context.Context, messageID string) (domain.Eclass, error) {
	db, err := s.session(ctx)
	if err != nil {
		return domain.Eclass{}, err
	}
	return s.first(db, db.Where("announcement_message_id = ?", messageID))
}

// ListOverlapping returns planned e-classes whose window intersects [start, end).
func (s *Store) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Eclass, error) {
	db, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.find(db, db.
		Where("status = ? AND start_ms < ? AND end_ms > ? AND id <> ?",
			string(domain.StatusPlanned), toMillis(end), toMillis(start), excludeID).
		Order("start_ms, id"))
}

// ListByStatus returns every e-class in one of statuses ordered by start.
func (s *Store) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Eclass, error) {
	db, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return s.find(db, db.
		Where("status IN ("+storage.Placeholders(len(statuses))+")", storage.StatusStrings(statuses)...).
		Order("start_ms, id"))
}

// List returns e-classes matching filter ordered by start then id. The page
// token is the id of the last e-class of the previous page.
func (s *Store) List(ctx context.Context, filter string, pageSize int, pageToken string) (domain.Page, error) {
	db, err := s.session(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	if pageSize <= 0 {
		return domain.Page{}, fmt.Errorf("page size must be greater than zero")
	}
	cond, err := storage.ParseFilter(filter)
	if err != nil {
		return domain.Page{}, err
	}

	query := db.Model(&eclassRow{})
	if !cond.Empty() {
		query = query.Where(cond.Clause, cond.Params...)
	}
	if pageToken = strings.TrimSpace(pageToken); pageToken != "" {
		var anchor eclassRow
		err := db.Select("start_ms").Where("id = ?", pageToken).Take(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Page{}, fmt.Errorf("%w: %s", domain.ErrInvalidPageToken, pageToken)
		}
		if err != nil {
			return domain.Page{}, fmt.Errorf("resolve page token: %w", err)
		}
		query = query.Where("(start_ms > ? OR (start_ms = ? AND id > ?))", anchor.StartMs, anchor.StartMs, pageToken)
	}

	eclasses, err := s.find(db, query.Order("start_ms, id").Limit(pageSize+1))
	if err != nil {
		return domain.Page{}, err
	}
	page := domain.Page{Eclasses: eclasses}
	if len(eclasses) > pageSize {
		page.NextPageToken = eclasses[pageSize-1].ID
		page.Eclasses = eclasses[:pageSize]
	}
	return page, nil
}

// TransitionStatus moves an e-class from one status to another if it is
// still in the expected status.
func (s *Store) TransitionStatus(ctx context.Context, classID string, from, to domain.Status, at time.Time) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	result := db.Model(&eclassRow{}).
		Where("id = ? AND status = ?", classID, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": toMillis(at)})
	if result.Error != nil {
		return fmt.Errorf("transition status: %w", result.Error)
	}
	return s.expectOneRow(db, result.RowsAffected, classID, domain.ErrStatusConflict)
}

// MarkReminded sets the reminded flag and reports whether this call set it.
func (s *Store) MarkReminded(ctx context.Context, classID string, at time.Time) (bool, error) {
	db, err := s.session(ctx)
	if err != nil {
		return false, err
	}
	result := db.Model(&eclassRow{}).
		Where("id = ? AND reminded = ?", classID, false).
		Updates(map[string]any{"reminded": true, "updated_at": toMillis(at)})
	if result.Error != nil {
		return false, fmt.Errorf("mark reminded: %w", result.Error)
	}
	errAlreadySet := errors.New("already reminded")
	err = s.expectOneRow(db, result.RowsAffected, classID, errAlreadySet)
	if errors.Is(err, errAlreadySet) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddSubscriber adds userID to the subscriber set.
func (s *Store) AddSubscriber(ctx context.Context, classID, userID string, at time.Time) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, classID, at); err != nil {
			return err
		}
		row := subscriberRow{EclassID: classID, UserID: userID, CreatedAt: toMillis(at)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("add subscriber: %w", err)
		}
		return nil
	})
}

// RemoveSubscriber removes userID from the subscriber set.
func (s *Store) RemoveSubscriber(ctx context.Context, classID, userID string, at time.Time) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, classID, at); err != nil {
			return err
		}
		if err := tx.Where("eclass_id = ? AND user_id = ?", classID, userID).Delete(&subscriberRow{}).Error; err != nil {
			return fmt.Errorf("remove subscriber: %w", err)
		}
		return nil
	})
}

// AppendRecordLink appends link after the existing record links.
func (s *Store) AppendRecordLink(ctx context.Context, classID, link string, at time.Time) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, classID, at); err != nil {
			return err
		}
		var last int
		if err := tx.Model(&recordLinkRow{}).
			Where("eclass_id = ?", classID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("record link position: %w", err)
		}
		row := recordLinkRow{EclassID: classID, Position: last + 1, Link: link, CreatedAt: toMillis(at)}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("append record link: %w", err)
		}
		return nil
	})
}

// RemoveRecordLink removes every occurrence of link.
func (s *Store) RemoveRecordLink(ctx context.Context, classID, link string, at time.Time) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, classID, at); err != nil {
			return err
		}
		if err := tx.Where("eclass_id = ? AND link = ?", classID, link).Delete(&recordLinkRow{}).Error; err != nil {
			return fmt.Errorf("remove record link: %w", err)
		}
		return nil
	})
}

// UpdateDetails rewrites the editable fields of a planned e-class.
func (s *Store) UpdateDetails(ctx context.Context, e domain.Eclass) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	result := db.Model(&eclassRow{}).
		Where("id = ? AND status = ?", e.ID, string(domain.StatusPlanned)).
		Updates(map[string]any{
			"topic":             e.Topic,
			"start_ms":          toMillis(e.Start),
			"end_ms":            toMillis(e.End()),
			"duration_ms":       e.Duration.Milliseconds(),
			"place":             string(e.Place),
			"place_information": e.PlaceInformation,
			"is_recorded":       e.IsRecorded,
			"role_name":         e.RoleName,
			"updated_at":        toMillis(e.UpdatedAt),
		})
	if result.Error != nil {
		return fmt.Errorf("update eclass: %w", result.Error)
	}
	return s.expectOneRow(db, result.RowsAffected, e.ID, domain.ErrStatusConflict)
}

func (s *Store) expectOneRow(db *gorm.DB, affected int64, classID string, missed error) error {
	if affected == 1 {
		return nil
	}
	var count int64
	if err := db.Model(&eclassRow{}).Where("id = ?", classID).Count(&count).Error; err != nil {
		return fmt.Errorf("check eclass: %w", err)
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return missed
}

func touch(tx *gorm.DB, classID string, at time.Time) error {
	result := tx.Model(&eclassRow{}).Where("id = ?", classID).Update("updated_at", toMillis(at))
	if result.Error != nil {
		return fmt.Errorf("touch eclass: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) first(db, query *gorm.DB) (domain.Eclass, error) {
	eclasses, err := s.find(db, query.Limit(1))
	if err != nil {
		return domain.Eclass{}, err
	}
	if len(eclasses) == 0 {
		return domain.Eclass{}, domain.ErrNotFound
	}
	return eclasses[0], nil
}

func (s *Store) find(db, query *gorm.DB) ([]domain.Eclass, error) {
	var rows []eclassRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query eclasses: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var subscribers []subscriberRow
	if err := db.Where("eclass_id IN ?", ids).Order("created_at, user_id").Find(&subscribers).Error; err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	var links []recordLinkRow
	if err := db.Where("eclass_id IN ?", ids).Order("position").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load record links: %w", err)
	}
	subscribersByID := make(map[string][]string, len(rows))
	for _, sub := range subscribers {
		subscribersByID[sub.EclassID] = append(subscribersByID[sub.EclassID], sub.UserID)
	}
	linksByID := make(map[string][]string, len(rows))
	for _, link := range links {
		linksByID[link.EclassID] = append(linksByID[link.EclassID], link.Link)
	}

	eclasses := make([]domain.Eclass, 0, len(rows))
	for _, row := range rows {
		e := row.toDomain()
		e.Subscribers = subscribersByID[row.ID]
		e.RecordLinks = linksByID[row.ID]
		eclasses = append(eclasses, e)
	}
	return eclasses, nil
}

// UpcomingBoard returns the upcoming-classes board of year.
func (s *Store) UpcomingBoard(ctx context.Context, year domain.SchoolYear) (domain.Board, error) {
	db, err := s.session(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	var row boardRow
	err = db.Where("school_year = ?", string(year)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Board{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("get upcoming board: %w", err)
	}
	return domain.Board{SchoolYear: year, ChannelID: row.ChannelID, MessageID: row.MessageID}, nil
}

// SaveUpcomingBoard stores the board of a school year, replacing any previous one.
func (s *Store) SaveUpcomingBoard(ctx context.Context, board domain.Board, at time.Time) error {
	db, err := s.session(ctx)
	if err != nil {
		return err
	}
	row := boardRow{
		SchoolYear: string(board.SchoolYear),
		ChannelID:  board.ChannelID,
		MessageID:  board.MessageID,
		UpdatedAt:  toMillis(at),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "school_year"}},
		DoUpdates: clause.AssignmentColumns([]string{"channel_id", "message_id", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("save upcoming board: %w", err)
	}
	return nil
}
