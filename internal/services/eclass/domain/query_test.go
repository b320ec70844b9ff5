package domain

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
)

func TestGetUnknownClass(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Get(context.Background(), "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestListMapsInvalidFilter(t *testing.T) {
	h := newHarness(t)
	h.store.fail("List", fmt.Errorf("%w: unknown field room", ErrInvalidFilter))

	_, err := h.manager.List(context.Background(), `room = "A"`, 10, "")
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestListUpcomingBuildsFilter(t *testing.T) {
	h := newHarness(t)
	mustCreate(t, h, createInput("prof-1", SchoolYearL1, at(3, 10, 0), time.Hour))

	got, err := h.manager.ListUpcoming(context.Background(), SchoolYearL1, 0)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("upcoming = %d, want 1", len(got))
	}
	filter := h.store.filters[len(h.store.filters)-1]
	for _, want := range []string{`status = "planned"`, `school_year = "L1"`, `start >= timestamp("2026-03-02T08:00:00Z")`, `start < timestamp("2026-03-09T08:00:00Z")`} {
		if !strings.Contains(filter, want) {
			t.Fatalf("filter %q missing %q", filter, want)
		}
	}
}

func TestListUpcomingRejectsUnknownYear(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.ListUpcoming(context.Background(), SchoolYear("M2"), 0)
	assertCode(t, err, apperrors.CodeInvalidInput)
}
