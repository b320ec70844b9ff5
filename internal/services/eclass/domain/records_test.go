package domain

import (
	"context"
	"slices"
	"testing"
	"time"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
)

func TestAddRecordLinkAppendsAndBroadcasts(t *testing.T) {
	h := newHarness(t)
	e := mustCreate(t, h, createInput("prof-1", SchoolYearL1, at(10, 10, 0), time.Hour))

	updated, err := h.manager.AddRecordLink(context.Background(), Actor{UserID: "prof-1"}, e.ID, "https://video.example/1", false)
	if err != nil {
		t.Fatalf("add link: %v", err)
	}
	if !slices.Equal(updated.RecordLinks, []string{"https://video.example/1"}) {
		t.Fatalf("links = %v", updated.RecordLinks)
	}
	edit, ok := h.gateway.lastEdit()
	if !ok || edit.Content.Text != "announcement "+e.ID+" planned links=1" {
		t.Fatalf("last edit = %+v, want repaint with one link", edit)
	}
	if msgs := h.gateway.channelMessages("text-L1"); len(msgs) != 1 {
		t.Fatalf("class channel messages = %d, want 1", len(msgs))
	}
}

func TestAddRecordLinkSilent(t *testing.T) {
	h := newHarness(t)
	e := mustCreate(t, h, createInput("prof-1", SchoolYearL1, at(10, 10, 0), time.Hour))

	if _, err := h.manager.AddRecordLink(context.Background(), Actor{UserID: "staff", Staff: true}, e.ID, "https://video.example/1", true); err != nil {
		t.Fatalf("add link: %v", err)
	}
	if msgs := h.gateway.channelMessages("text-L1"); len(msgs) != 0 {
		t.Fatalf("class channel messages = %d, want 0", len(msgs))
	}
}

func TestRemoveRecordLinkFiltersAllCopies(t *testing.T) {
	h := newHarness(t)
	e := mustCreate(t, h, createInput("prof-1", SchoolYearL1, at(10, 10, 0), time.Hour))
	for _, link := range []string{"https://a.example", "https://b.example", "https://a.example"} {
		if _, err := h.manager.AddRecordLink(context.Background(), SystemActor, e.ID, link, true); err != nil {
			t.Fatalf("add %s: %v", link, err)
		}
	}

	updated, err := h.manager.RemoveRecordLink(context.Background(), SystemActor, e.ID, "https://a.example")
	if err != nil {
		t.Fatalf("remove link: %v", err)
	}
	if !slices.Equal(updated.RecordLinks, []string{"https://b.example"}) {
		t.Fatalf("links = %v, want [https://b.example]", updated.RecordLinks)
	}
	if got := h.store.record(e.ID).RecordLinks; !slices.Equal(got, updated.RecordLinks) {
		t.Fatalf("persisted links = %v, want %v", got, updated.RecordLinks)
	}
}

func TestRecordLinkRejections(t *testing.T) {
	h := newHarness(t)
	e := mustCreate(t, h, createInput("prof-1", SchoolYearL1, at(10, 10, 0), time.Hour))

	_, err := h.manager.AddRecordLink(context.Background(), Actor{UserID: "student-1"}, e.ID, "https://video.example/1", false)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = h.manager.AddRecordLink(context.Background(), SystemActor, e.ID, "not a link", false)
	assertCode(t, err, apperrors.CodeInvalidInput)

	_, err = h.manager.AddRecordLink(context.Background(), SystemActor, "missing", "https://video.example/1", false)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestRecordLinkMissingAnnouncement(t *testing.T) {
	h := newHarness(t)
	e := mustCreate(t, h, createInput("prof-1", SchoolYearL1, at(10, 10, 0), time.Hour))
	h.gateway.missing[e.AnnouncementMessageID] = true

	_, err := h.manager.AddRecordLink(context.Background(), SystemActor, e.ID, "https://video.example/1", false)
	if !IsIntegrityFault(err) {
		t.Fatalf("err = %v, want integrity fault", err)
	}
}
