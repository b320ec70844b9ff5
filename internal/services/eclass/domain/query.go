package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	// DefaultUpcomingWindow is the span of the "classes of the week" view.
	DefaultUpcomingWindow = 7 * 24 * time.Hour
)

var (
	// ErrInvalidFilter indicates a listing filter could not be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidPageToken indicates a listing page token could not be decoded.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Get returns one e-class.
func (m *Manager) Get(ctx context.Context, classID string) (Eclass, error) {
	return m.load(ctx, classID)
}

// List returns e-classes matching an AIP-160 filter, ordered by start.
func (m *Manager) List(ctx context.Context, filter string, pageSize int, pageToken string) (Page, error) {
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	page, err := m.store.List(ctx, filter, pageSize, pageToken)
	if errors.Is(err, ErrInvalidFilter) || errors.Is(err, ErrInvalidPageToken) {
		return Page{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), err)
	}
	if err != nil {
		return Page{}, fmt.Errorf("list eclasses: %w", err)
	}
	return page, nil
}

// ListUpcoming returns the planned e-classes of a school year starting
// within window from now.
func (m *Manager) ListUpcoming(ctx context.Context, year SchoolYear, window time.Duration) ([]Eclass, error) {
	if !year.Valid() {
		return nil, reject(apperrors.CodeInvalidInput, fmt.Sprintf("unknown school year %q", year))
	}
	if window <= 0 {
		window = DefaultUpcomingWindow
	}
	now := m.now()
	filter := fmt.Sprintf(`status = "%s" AND school_year = "%s" AND start >= timestamp("%s") AND start < timestamp("%s")`,
		StatusPlanned, year, now.Format(time.RFC3339Nano), now.Add(window).Format(time.RFC3339Nano))

	var upcoming []Eclass
	token := ""
	for {
		page, err := m.List(ctx, filter, maxPageSize, token)
		if err != nil {
			return nil, err
		}
		upcoming = append(upcoming, page.Eclasses...)
		if page.NextPageToken == "" {
			return upcoming, nil
		}
		token = page.NextPageToken
	}
}
