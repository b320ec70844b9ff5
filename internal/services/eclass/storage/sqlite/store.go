// Package sqlite provides the SQLite-backed e-class store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/eclassroom/eclass/internal/platform/storage/sqlitemigrate"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
	"github.com/eclassroom/eclass/internal/services/eclass/storage"
	"github.com/eclassroom/eclass/internal/services/eclass/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const eclassColumns = `id, professor_id, subject_name, school_year, text_channel_id, voice_channel_id, subject_emoji,
topic, start_ms, duration_ms, place, place_information, announcement_channel_id, announcement_message_id,
class_role_id, target_role_id, role_name, is_recorded, status, reminded, created_at, updated_at`

// Store provides SQLite-backed e-class persistence. Each mutating method
// runs in a single statement or transaction.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ domain.Store      = (*Store)(nil)
	_ domain.BoardStore = (*Store)(nil)
)

// Open opens an e-class SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// Insert persists a new e-class with its subscribers and record links.
func (s *Store) Insert(ctx context.Context, e domain.Eclass) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("eclass id is required")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO eclasses (`+eclassColumns+`, end_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			e.ID, e.ProfessorID, e.Subject.Name, string(e.Subject.SchoolYear), e.Subject.TextChannelID,
			e.Subject.VoiceChannelID, e.Subject.Emoji, e.Topic, toMillis(e.Start), e.Duration.Milliseconds(),
			string(e.Place), e.PlaceInformation, e.AnnouncementChannelID, e.AnnouncementMessageID,
			e.ClassRoleID, e.TargetRoleID, e.RoleName, boolToInt(e.IsRecorded), string(e.Status),
			boolToInt(e.Reminded), toMillis(e.CreatedAt), toMillis(e.UpdatedAt), toMillis(e.End()),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return domain.ErrConflict
			}
			return fmt.Errorf("insert eclass: %w", err)
		}
		for _, userID := range e.Subscribers {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO eclass_subscribers (eclass_id, user_id, created_at) VALUES (?, ?, ?)`,
				e.ID, userID, toMillis(e.CreatedAt)); err != nil {
				return fmt.Errorf("insert subscriber: %w", err)
			}
		}
		for i, link := range e.RecordLinks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO eclass_record_links (eclass_id, position, link, created_at) VALUES (?, ?, ?, ?)`,
				e.ID, i+1, link, toMillis(e.CreatedAt)); err != nil {
				return fmt.Errorf("insert record link: %w", err)
			}
		}
		return nil
	})
}

// Get returns one e-class by id.
func (s *Store) Get(ctx context.Context, classID string) (domain.Eclass, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Eclass{}, err
	}
	return s.getOne(ctx, `SELECT `+eclassColumns+` FROM eclasses WHERE id = ?`, classID)
}

// FindByAnnouncementMessage returns the e-class announced by messageID.
func (s *Store) FindByAnnouncementMessage(ctx context.Context, messageID string) (domain.Eclass, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Eclass{}, err
	}
	return s.getOne(ctx, `SELECT `+eclassColumns+` FROM eclasses WHERE announcement_message_id = ?`, messageID)
}

// ListOverlapping returns planned e-classes whose window intersects [start, end).
func (s *Store) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]domain.Eclass, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.query(ctx, `
SELECT `+eclassColumns+`
FROM eclasses
WHERE status = ? AND start_ms < ? AND end_ms > ? AND id != ?
ORDER BY start_ms, id
`, string(domain.StatusPlanned), toMillis(end), toMillis(start), excludeID)
}

// ListByStatus returns every e-class in one of statuses ordered by start.
func (s *Store) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Eclass, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return s.query(ctx, `
SELECT `+eclassColumns+`
FROM eclasses
WHERE status IN (`+storage.Placeholders(len(statuses))+`)
ORDER BY start_ms, id
`, storage.StatusStrings(statuses)...)
}

// List returns e-classes matching filter ordered by start then id. The page
// token is the id of the last e-class of the previous page.
func (s *Store) List(ctx context.Context, filter string, pageSize int, pageToken string) (domain.Page, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Page{}, err
	}
	if pageSize <= 0 {
		return domain.Page{}, fmt.Errorf("page size must be greater than zero")
	}
	cond, err := storage.ParseFilter(filter)
	if err != nil {
		return domain.Page{}, err
	}

	var clauses []string
	var params []any
	if !cond.Empty() {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	if pageToken = strings.TrimSpace(pageToken); pageToken != "" {
		var tokenStart int64
		err := s.sqlDB.QueryRowContext(ctx, `SELECT start_ms FROM eclasses WHERE id = ?`, pageToken).Scan(&tokenStart)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Page{}, fmt.Errorf("%w: %s", domain.ErrInvalidPageToken, pageToken)
		}
		if err != nil {
			return domain.Page{}, fmt.Errorf("resolve page token: %w", err)
		}
		clauses = append(clauses, "(start_ms > ? OR (start_ms = ? AND id > ?))")
		params = append(params, tokenStart, tokenStart, pageToken)
	}

	query := `SELECT ` + eclassColumns + ` FROM eclasses`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_ms, id LIMIT ?`
	params = append(params, pageSize+1)

	eclasses, err := s.query(ctx, query, params...)
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
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE eclasses SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), toMillis(at), classID, string(from))
	if err != nil {
		return fmt.Errorf("transition status: %w", err)
	}
	return s.expectOneRow(ctx, result, classID, domain.ErrStatusConflict)
}

// MarkReminded sets the reminded flag and reports whether this call set it.
func (s *Store) MarkReminded(ctx context.Context, classID string, at time.Time) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE eclasses SET reminded = 1, updated_at = ? WHERE id = ? AND reminded = 0`,
		toMillis(at), classID)
	if err != nil {
		return false, fmt.Errorf("mark reminded: %w", err)
	}
	errAlreadySet := errors.New("already reminded")
	err = s.expectOneRow(ctx, result, classID, errAlreadySet)
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
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, classID, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO eclass_subscribers (eclass_id, user_id, created_at) VALUES (?, ?, ?)`,
			classID, userID, toMillis(at)); err != nil {
			return fmt.Errorf("add subscriber: %w", err)
		}
		return nil
	})
}

// RemoveSubscriber removes userID from the subscriber set.
func (s *Store) RemoveSubscriber(ctx context.Context, classID, userID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, classID, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM eclass_subscribers WHERE eclass_id = ? AND user_id = ?`, classID, userID); err != nil {
			return fmt.Errorf("remove subscriber: %w", err)
		}
		return nil
	})
}

// AppendRecordLink appends link after the existing record links.
func (s *Store) AppendRecordLink(ctx context.Context, classID, link string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, classID, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO eclass_record_links (eclass_id, position, link, created_at)
SELECT ?, COALESCE(MAX(position), 0) + 1, ?, ? FROM eclass_record_links WHERE eclass_id = ?
`, classID, link, toMillis(at), classID); err != nil {
			return fmt.Errorf("append record link: %w", err)
		}
		return nil
	})
}

// RemoveRecordLink removes every occurrence of link.
func (s *Store) RemoveRecordLink(ctx context.Context, classID, link string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touch(ctx, tx, classID, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM eclass_record_links WHERE eclass_id = ? AND link = ?`, classID, link); err != nil {
			return fmt.Errorf("remove record link: %w", err)
		}
		return nil
	})
}

// UpdateDetails rewrites the editable fields of a planned e-class.
func (s *Store) UpdateDetails(ctx context.Context, e domain.Eclass) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE eclasses
SET topic = ?, start_ms = ?, end_ms = ?, duration_ms = ?, place = ?, place_information = ?,
    is_recorded = ?, role_name = ?, updated_at = ?
WHERE id = ? AND status = ?
`,
		e.Topic, toMillis(e.Start), toMillis(e.End()), e.Duration.Milliseconds(), string(e.Place),
		e.PlaceInformation, boolToInt(e.IsRecorded), e.RoleName, toMillis(e.UpdatedAt),
		e.ID, string(domain.StatusPlanned))
	if err != nil {
		return fmt.Errorf("update eclass: %w", err)
	}
	return s.expectOneRow(ctx, result, e.ID, domain.ErrStatusConflict)
}

// expectOneRow maps a zero-row update to ErrNotFound when the record is
// missing and to missed otherwise.
func (s *Store) expectOneRow(ctx context.Context, result sql.Result, classID string, missed error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var found int
	err = s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM eclasses WHERE id = ?`, classID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check eclass: %w", err)
	}
	return missed
}

func touch(ctx context.Context, tx *sql.Tx, classID string, at time.Time) error {
	result, err := tx.ExecContext(ctx, `UPDATE eclasses SET updated_at = ? WHERE id = ?`, toMillis(at), classID)
	if err != nil {
		return fmt.Errorf("touch eclass: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) getOne(ctx context.Context, query string, args ...any) (domain.Eclass, error) {
	eclasses, err := s.query(ctx, query, args...)
	if err != nil {
		return domain.Eclass{}, err
	}
	if len(eclasses) == 0 {
		return domain.Eclass{}, domain.ErrNotFound
	}
	return eclasses[0], nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]domain.Eclass, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query eclasses: %w", err)
	}
	var eclasses []domain.Eclass
	for rows.Next() {
		e, err := scanEclass(rows.Scan)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan eclass row: %w", err)
		}
		eclasses = append(eclasses, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate eclass rows: %w", err)
	}
	_ = rows.Close()

	for i := range eclasses {
		if err := s.loadCollections(ctx, &eclasses[i]); err != nil {
			return nil, err
		}
	}
	return eclasses, nil
}

func (s *Store) loadCollections(ctx context.Context, e *domain.Eclass) error {
	subscribers, err := s.strings(ctx,
		`SELECT user_id FROM eclass_subscribers WHERE eclass_id = ? ORDER BY created_at, user_id`, e.ID)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}
	links, err := s.strings(ctx,
		`SELECT link FROM eclass_record_links WHERE eclass_id = ? ORDER BY position`, e.ID)
	if err != nil {
		return fmt.Errorf("load record links: %w", err)
	}
	e.Subscribers = subscribers
	e.RecordLinks = links
	return nil
}

func (s *Store) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

type scanner func(dest ...any) error

func scanEclass(scan scanner) (domain.Eclass, error) {
	var e domain.Eclass
	var schoolYear, place, status string
	var startMs, durationMs, createdAt, updatedAt int64
	var isRecorded, reminded int
	if err := scan(
		&e.ID, &e.ProfessorID, &e.Subject.Name, &schoolYear, &e.Subject.TextChannelID,
		&e.Subject.VoiceChannelID, &e.Subject.Emoji, &e.Topic, &startMs, &durationMs, &place,
		&e.PlaceInformation, &e.AnnouncementChannelID, &e.AnnouncementMessageID, &e.ClassRoleID,
		&e.TargetRoleID, &e.RoleName, &isRecorded, &status, &reminded, &createdAt, &updatedAt,
	); err != nil {
		return domain.Eclass{}, err
	}
	e.Subject.SchoolYear = domain.SchoolYear(schoolYear)
	e.Place = domain.Place(place)
	e.Status = domain.Status(status)
	e.Start = fromMillis(startMs)
	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.IsRecorded = isRecorded != 0
	e.Reminded = reminded != 0
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updatedAt)
	return e, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint") || strings.Contains(value, "constraint failed: unique")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// UpcomingBoard returns the upcoming-classes board of year.
func (s *Store) UpcomingBoard(ctx context.Context, year domain.SchoolYear) (domain.Board, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Board{}, err
	}
	board := domain.Board{SchoolYear: year}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT channel_id, message_id FROM eclass_upcoming_boards WHERE school_year = ?`, string(year),
	).Scan(&board.ChannelID, &board.MessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("get upcoming board: %w", err)
	}
	return board, nil
}

// SaveUpcomingBoard stores the board of a school year, replacing any previous one.
func (s *Store) SaveUpcomingBoard(ctx context.Context, board domain.Board, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO eclass_upcoming_boards (school_year, channel_id, message_id, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (school_year) DO UPDATE SET
    channel_id = excluded.channel_id,
    message_id = excluded.message_id,
    updated_at = excluded.updated_at
`, string(board.SchoolYear), board.ChannelID, board.MessageID, toMillis(at)); err != nil {
		return fmt.Errorf("save upcoming board: %w", err)
	}
	return nil
}
