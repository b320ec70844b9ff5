// Package storagetest holds behavior checks shared by every domain.Store adapter.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

// Base is the reference instant used by every fixture.
var Base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// Fixture returns a planned e-class starting offset after Base.
func Fixture(id, professorID string, year domain.SchoolYear, offset, duration time.Duration) domain.Eclass {
	return domain.Eclass{
		ID:       id,
		Start:    Base.Add(offset),
		Duration: duration,
		Subject: domain.Subject{
			Name:           "Analysis " + string(year),
			SchoolYear:     year,
			TextChannelID:  "text-" + string(year),
			VoiceChannelID: "voice-" + string(year),
			Emoji:          "📐",
		},
		Topic:                 "Integrals",
		Place:                 domain.PlaceInPlatform,
		ProfessorID:           professorID,
		AnnouncementChannelID: "ann-" + string(year),
		AnnouncementMessageID: "msg-" + id,
		ClassRoleID:           "role-" + id,
		TargetRoleID:          "aud-" + string(year),
		RoleName:              "Analysis: Integrals (" + id + ")",
		IsRecorded:            true,
		Status:                domain.StatusPlanned,
		CreatedAt:             Base,
		UpdatedAt:             Base,
	}
}

// Run exercises newStore against the domain.Store contract. Each subtest
// receives an empty store.
func Run(t *testing.T, newStore func(t *testing.T) domain.Store) {
	t.Helper()

	t.Run("insert and get round trip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		want := Fixture("c1", "prof-1", domain.SchoolYearL1, 2*time.Hour, 90*time.Minute)
		want.Subscribers = []string{"u1", "u2"}
		want.RecordLinks = []string{"https://rec/1"}
		if err := store.Insert(ctx, want); err != nil {
			t.Fatalf("insert: %v", err)
		}
		got, err := store.Get(ctx, "c1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Start.Equal(want.Start) || got.Duration != want.Duration {
			t.Fatalf("window = %v+%v, want %v+%v", got.Start, got.Duration, want.Start, want.Duration)
		}
		if got.Subject != want.Subject {
			t.Fatalf("subject = %+v, want %+v", got.Subject, want.Subject)
		}
		if got.Topic != want.Topic || got.Place != want.Place || got.ProfessorID != want.ProfessorID {
			t.Fatalf("details = %+v", got)
		}
		if got.AnnouncementMessageID != "msg-c1" || got.ClassRoleID != "role-c1" || got.RoleName != want.RoleName {
			t.Fatalf("platform ids = %+v", got)
		}
		if !got.IsRecorded || got.Reminded || got.Status != domain.StatusPlanned {
			t.Fatalf("flags = recorded %v reminded %v status %s", got.IsRecorded, got.Reminded, got.Status)
		}
		if !slices.Equal(got.Subscribers, want.Subscribers) {
			t.Fatalf("subscribers = %v, want %v", got.Subscribers, want.Subscribers)
		}
		if !slices.Equal(got.RecordLinks, want.RecordLinks) {
			t.Fatalf("record links = %v, want %v", got.RecordLinks, want.RecordLinks)
		}
	})

	t.Run("insert duplicate id conflicts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		e := Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour)
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
		e.AnnouncementMessageID = "msg-other"
		if err := store.Insert(ctx, e); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("second insert error = %v, want %v", err, domain.ErrConflict)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get error = %v, want %v", err, domain.ErrNotFound)
		}
		if _, err := store.FindByAnnouncementMessage(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("find error = %v, want %v", err, domain.ErrNotFound)
		}
	})

	t.Run("find by announcement message", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour))
		mustInsert(t, store, Fixture("c2", "prof-1", domain.SchoolYearL2, 3*time.Hour, time.Hour))
		got, err := store.FindByAnnouncementMessage(ctx, "msg-c2")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.ID != "c2" {
			t.Fatalf("id = %s, want c2", got.ID)
		}
	})

	t.Run("list overlapping", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("a", "prof-1", domain.SchoolYearL1, 0, time.Hour))
		mustInsert(t, store, Fixture("b", "prof-2", domain.SchoolYearL2, time.Hour, time.Hour))
		mustInsert(t, store, Fixture("c", "prof-3", domain.SchoolYearL3, 30*time.Minute, time.Hour))
		done := Fixture("d", "prof-4", domain.SchoolYearL1, 30*time.Minute, time.Hour)
		done.Status = domain.StatusCanceled
		mustInsert(t, store, done)

		got, err := store.ListOverlapping(ctx, Base.Add(30*time.Minute), Base.Add(time.Hour), "")
		if err != nil {
			t.Fatalf("list overlapping: %v", err)
		}
		if ids := idsOf(got); !slices.Equal(ids, []string{"a", "c"}) {
			t.Fatalf("ids = %v, want [a c]", ids)
		}

		got, err = store.ListOverlapping(ctx, Base.Add(30*time.Minute), Base.Add(time.Hour), "c")
		if err != nil {
			t.Fatalf("list overlapping excluding: %v", err)
		}
		if ids := idsOf(got); !slices.Equal(ids, []string{"a"}) {
			t.Fatalf("ids = %v, want [a]", ids)
		}
	})

	t.Run("list by status", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("late", "prof-1", domain.SchoolYearL1, 5*time.Hour, time.Hour))
		mustInsert(t, store, Fixture("early", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour))
		live := Fixture("live", "prof-2", domain.SchoolYearL2, 0, time.Hour)
		live.Status = domain.StatusInProgress
		mustInsert(t, store, live)
		over := Fixture("over", "prof-3", domain.SchoolYearL3, 0, time.Hour)
		over.Status = domain.StatusFinished
		mustInsert(t, store, over)

		got, err := store.ListByStatus(ctx, domain.StatusPlanned, domain.StatusInProgress)
		if err != nil {
			t.Fatalf("list by status: %v", err)
		}
		if ids := idsOf(got); !slices.Equal(ids, []string{"live", "early", "late"}) {
			t.Fatalf("ids = %v, want [live early late]", ids)
		}
		got, err = store.ListByStatus(ctx)
		if err != nil || len(got) != 0 {
			t.Fatalf("empty status list = %v, %v", got, err)
		}
	})

	t.Run("list pages with filter", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for i := range 5 {
			mustInsert(t, store, Fixture(fmt.Sprintf("l1-%d", i), "prof-1", domain.SchoolYearL1, time.Duration(i+1)*time.Hour, 30*time.Minute))
		}
		mustInsert(t, store, Fixture("l2-0", "prof-2", domain.SchoolYearL2, time.Hour, 30*time.Minute))

		page, err := store.List(ctx, `school_year = "l1"`, 2, "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var seen []string
		seen = append(seen, idsOf(page.Eclasses)...)
		for page.NextPageToken != "" {
			page, err = store.List(ctx, `school_year = "l1"`, 2, page.NextPageToken)
			if err != nil {
				t.Fatalf("list next: %v", err)
			}
			seen = append(seen, idsOf(page.Eclasses)...)
		}
		want := []string{"l1-0", "l1-1", "l1-2", "l1-3", "l1-4"}
		if !slices.Equal(seen, want) {
			t.Fatalf("paged ids = %v, want %v", seen, want)
		}

		page, err = store.List(ctx, fmt.Sprintf(`start >= timestamp("%s") AND professor_id = "prof-1"`, Base.Add(4*time.Hour).Format(time.RFC3339)), 10, "")
		if err != nil {
			t.Fatalf("list by start: %v", err)
		}
		if ids := idsOf(page.Eclasses); !slices.Equal(ids, []string{"l1-3", "l1-4"}) {
			t.Fatalf("ids = %v, want [l1-3 l1-4]", ids)
		}
	})

	t.Run("list rejects bad filter and token", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if _, err := store.List(ctx, `unknown = "x"`, 10, ""); !errors.Is(err, domain.ErrInvalidFilter) {
			t.Fatalf("filter error = %v, want %v", err, domain.ErrInvalidFilter)
		}
		if _, err := store.List(ctx, "", 10, "missing"); !errors.Is(err, domain.ErrInvalidPageToken) {
			t.Fatalf("token error = %v, want %v", err, domain.ErrInvalidPageToken)
		}
	})

	t.Run("transition status compare and set", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour))
		at := Base.Add(time.Hour)
		if err := store.TransitionStatus(ctx, "c1", domain.StatusPlanned, domain.StatusInProgress, at); err != nil {
			t.Fatalf("transition: %v", err)
		}
		if err := store.TransitionStatus(ctx, "c1", domain.StatusPlanned, domain.StatusCanceled, at); !errors.Is(err, domain.ErrStatusConflict) {
			t.Fatalf("stale transition error = %v, want %v", err, domain.ErrStatusConflict)
		}
		if err := store.TransitionStatus(ctx, "missing", domain.StatusPlanned, domain.StatusCanceled, at); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("missing transition error = %v, want %v", err, domain.ErrNotFound)
		}
		got := mustGet(t, store, "c1")
		if got.Status != domain.StatusInProgress || !got.UpdatedAt.Equal(at) {
			t.Fatalf("status %s updated %v", got.Status, got.UpdatedAt)
		}
	})

	t.Run("mark reminded once", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour))
		first, err := store.MarkReminded(ctx, "c1", Base)
		if err != nil || !first {
			t.Fatalf("first mark = %v, %v", first, err)
		}
		second, err := store.MarkReminded(ctx, "c1", Base)
		if err != nil || second {
			t.Fatalf("second mark = %v, %v", second, err)
		}
		if _, err := store.MarkReminded(ctx, "missing", Base); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("missing mark error = %v, want %v", err, domain.ErrNotFound)
		}
		if !mustGet(t, store, "c1").Reminded {
			t.Fatal("expected reminded flag")
		}
	})

	t.Run("subscribers are a set", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour))
		for _, userID := range []string{"u1", "u2", "u1"} {
			if err := store.AddSubscriber(ctx, "c1", userID, Base); err != nil {
				t.Fatalf("add %s: %v", userID, err)
			}
		}
		if err := store.RemoveSubscriber(ctx, "c1", "u1", Base); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if err := store.RemoveSubscriber(ctx, "c1", "ghost", Base); err != nil {
			t.Fatalf("remove absent: %v", err)
		}
		if got := mustGet(t, store, "c1").Subscribers; !slices.Equal(got, []string{"u2"}) {
			t.Fatalf("subscribers = %v, want [u2]", got)
		}
		if err := store.AddSubscriber(ctx, "missing", "u1", Base); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("missing add error = %v, want %v", err, domain.ErrNotFound)
		}
	})

	t.Run("record links keep order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		mustInsert(t, store, Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour))
		for _, link := range []string{"https://a", "https://b", "https://a", "https://c"} {
			if err := store.AppendRecordLink(ctx, "c1", link, Base); err != nil {
				t.Fatalf("append %s: %v", link, err)
			}
		}
		if err := store.RemoveRecordLink(ctx, "c1", "https://a", Base); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if got := mustGet(t, store, "c1").RecordLinks; !slices.Equal(got, []string{"https://b", "https://c"}) {
			t.Fatalf("links = %v, want [https://b https://c]", got)
		}
		if err := store.AppendRecordLink(ctx, "c1", "https://d", Base); err != nil {
			t.Fatalf("append after remove: %v", err)
		}
		if got := mustGet(t, store, "c1").RecordLinks; !slices.Equal(got, []string{"https://b", "https://c", "https://d"}) {
			t.Fatalf("links = %v", got)
		}
		if err := store.RemoveRecordLink(ctx, "missing", "https://a", Base); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("missing remove error = %v, want %v", err, domain.ErrNotFound)
		}
	})

	t.Run("update details only while planned", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		e := Fixture("c1", "prof-1", domain.SchoolYearL1, time.Hour, time.Hour)
		mustInsert(t, store, e)

		e.Topic = "Series"
		e.Start = Base.Add(4 * time.Hour)
		e.Duration = 2 * time.Hour
		e.Place = domain.PlaceInPerson
		e.PlaceInformation = "Room 12"
		e.IsRecorded = false
		e.RoleName = "Analysis: Series"
		e.UpdatedAt = Base.Add(time.Minute)
		if err := store.UpdateDetails(ctx, e); err != nil {
			t.Fatalf("update: %v", err)
		}
		got := mustGet(t, store, "c1")
		if got.Topic != "Series" || !got.Start.Equal(e.Start) || got.Duration != 2*time.Hour ||
			got.Place != domain.PlaceInPerson || got.PlaceInformation != "Room 12" || got.IsRecorded ||
			got.RoleName != "Analysis: Series" {
			t.Fatalf("updated = %+v", got)
		}
		overlapping, err := store.ListOverlapping(ctx, Base.Add(5*time.Hour), Base.Add(5*time.Hour+time.Minute), "")
		if err != nil || len(overlapping) != 1 {
			t.Fatalf("end not moved with update: %v, %v", overlapping, err)
		}

		if err := store.TransitionStatus(ctx, "c1", domain.StatusPlanned, domain.StatusCanceled, Base); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if err := store.UpdateDetails(ctx, e); !errors.Is(err, domain.ErrStatusConflict) {
			t.Fatalf("update canceled error = %v, want %v", err, domain.ErrStatusConflict)
		}
		e.ID = "missing"
		if err := store.UpdateDetails(ctx, e); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("update missing error = %v, want %v", err, domain.ErrNotFound)
		}
	})

	t.Run("upcoming board upsert", func(t *testing.T) {
		boards, ok := newStore(t).(domain.BoardStore)
		if !ok {
			t.Fatal("store does not keep upcoming boards")
		}
		ctx := context.Background()
		if _, err := boards.UpcomingBoard(ctx, domain.SchoolYearL1); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("missing board error = %v, want %v", err, domain.ErrNotFound)
		}
		first := domain.Board{SchoolYear: domain.SchoolYearL1, ChannelID: "week-l1", MessageID: "board-1"}
		if err := boards.SaveUpcomingBoard(ctx, first, Base); err != nil {
			t.Fatalf("save board: %v", err)
		}
		replaced := domain.Board{SchoolYear: domain.SchoolYearL1, ChannelID: "week-l1", MessageID: "board-2"}
		if err := boards.SaveUpcomingBoard(ctx, replaced, Base.Add(time.Hour)); err != nil {
			t.Fatalf("replace board: %v", err)
		}
		got, err := boards.UpcomingBoard(ctx, domain.SchoolYearL1)
		if err != nil {
			t.Fatalf("get board: %v", err)
		}
		if got != replaced {
			t.Fatalf("board = %+v, want %+v", got, replaced)
		}
		if _, err := boards.UpcomingBoard(ctx, domain.SchoolYearL2); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("L2 board error = %v, want %v", err, domain.ErrNotFound)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := store.Get(ctx, "c1"); !errors.Is(err, context.Canceled) {
			t.Fatalf("get error = %v, want %v", err, context.Canceled)
		}
	})
}

func mustInsert(t *testing.T, store domain.Store, e domain.Eclass) {
	t.Helper()
	if err := store.Insert(context.Background(), e); err != nil {
		t.Fatalf("insert %s: %v", e.ID, err)
	}
}

func mustGet(t *testing.T, store domain.Store, classID string) domain.Eclass {
	t.Helper()
	e, err := store.Get(context.Background(), classID)
	if err != nil {
		t.Fatalf("get %s: %v", classID, err)
	}
	return e
}

func idsOf(eclasses []domain.Eclass) []string {
	ids := make([]string, 0, len(eclasses))
	for _, e := range eclasses {
		ids = append(ids, e.ID)
	}
	return ids
}
