package scheduler

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

var base = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

type fakeLifecycle struct {
	mu       sync.Mutex
	records  map[string]domain.Eclass
	calls    []string
	filters  []string
	failOn   map[string]error
	pageSize int
}

func newFakeLifecycle(records ...domain.Eclass) *fakeLifecycle {
	f := &fakeLifecycle{records: map[string]domain.Eclass{}, failOn: map[string]error{}, pageSize: 2}
	for _, e := range records {
		f.records[e.ID] = e
	}
	return f
}

func (f *fakeLifecycle) List(_ context.Context, filter string, _ int, pageToken string) (domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	var ids []string
	for id, e := range f.records {
		if e.Status == domain.StatusPlanned || e.Status == domain.StatusInProgress {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	start := 0
	for start < len(ids) && pageToken != "" && ids[start] <= pageToken {
		start++
	}
	end := min(start+f.pageSize, len(ids))
	page := domain.Page{}
	for _, id := range ids[start:end] {
		page.Eclasses = append(page.Eclasses, f.records[id])
	}
	if end < len(ids) {
		page.NextPageToken = ids[end-1]
	}
	return page, nil
}

func (f *fakeLifecycle) record(op, classID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+classID)
	return f.failOn[op+" "+classID]
}

func (f *fakeLifecycle) RemindClass(_ context.Context, classID string) (bool, error) {
	if err := f.record("remind", classID); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.records[classID]
	if e.Reminded {
		return false, nil
	}
	e.Reminded = true
	f.records[classID] = e
	return true, nil
}

func (f *fakeLifecycle) Start(_ context.Context, actor domain.Actor, classID string) (domain.Eclass, error) {
	return f.move("start", actor, classID, domain.StatusInProgress)
}

func (f *fakeLifecycle) Finish(_ context.Context, actor domain.Actor, classID string) (domain.Eclass, error) {
	return f.move("finish", actor, classID, domain.StatusFinished)
}

func (f *fakeLifecycle) move(op string, actor domain.Actor, classID string, to domain.Status) (domain.Eclass, error) {
	if !actor.System {
		return domain.Eclass{}, errors.New("scheduler must act as system")
	}
	if err := f.record(op, classID); err != nil {
		return domain.Eclass{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.records[classID]
	e.Status = to
	f.records[classID] = e
	return e, nil
}

func (f *fakeLifecycle) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func eclass(id string, start time.Time, duration time.Duration, status domain.Status) domain.Eclass {
	return domain.Eclass{ID: id, Start: start, Duration: duration, Status: status}
}

func TestTickAdvancesDueEclasses(t *testing.T) {
	t.Parallel()

	reminded := eclass("already-reminded", base.Add(10*time.Minute), time.Hour, domain.StatusPlanned)
	reminded.Reminded = true
	lifecycle := newFakeLifecycle(
		eclass("far", base.Add(2*time.Hour), time.Hour, domain.StatusPlanned),
		eclass("soon", base.Add(10*time.Minute), time.Hour, domain.StatusPlanned),
		reminded,
		eclass("due", base.Add(-time.Minute), time.Hour, domain.StatusPlanned),
		eclass("missed", base.Add(-2*time.Hour), time.Hour, domain.StatusPlanned),
		eclass("live", base.Add(-30*time.Minute), time.Hour, domain.StatusInProgress),
		eclass("over", base.Add(-90*time.Minute), time.Hour, domain.StatusInProgress),
		eclass("done", base.Add(-3*time.Hour), time.Hour, domain.StatusFinished),
	)
	s := New(lifecycle, Config{ReminderLead: 15 * time.Minute}, func() time.Time { return base })

	result, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := Result{Reminded: 1, Started: 2, Finished: 2}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
	calls := lifecycle.snapshot()
	sort.Strings(calls)
	wantCalls := []string{"finish missed", "finish over", "remind soon", "start due", "start missed"}
	if !slices.Equal(calls, wantCalls) {
		t.Fatalf("calls = %v, want %v", calls, wantCalls)
	}
	if lifecycle.filters[0] != activeFilter {
		t.Fatalf("filter = %q, want %q", lifecycle.filters[0], activeFilter)
	}
	if len(lifecycle.filters) < 3 {
		t.Fatalf("expected paging across %d pages", len(lifecycle.filters))
	}
}

func TestTickReminderWindowIsInclusive(t *testing.T) {
	t.Parallel()

	lifecycle := newFakeLifecycle(eclass("edge", base.Add(15*time.Minute), time.Hour, domain.StatusPlanned))
	s := New(lifecycle, Config{ReminderLead: 15 * time.Minute}, func() time.Time { return base })

	result, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if result.Reminded != 1 {
		t.Fatalf("reminded = %d, want 1", result.Reminded)
	}
	if result, _ = s.Tick(context.Background()); result.Reminded != 0 {
		t.Fatalf("second tick reminded = %d, want 0", result.Reminded)
	}
}

func TestTickCountsFailuresAndSkipsRaces(t *testing.T) {
	t.Parallel()

	lifecycle := newFakeLifecycle(
		eclass("raced", base.Add(-time.Minute), time.Hour, domain.StatusPlanned),
		eclass("broken", base.Add(-time.Minute), time.Hour, domain.StatusPlanned),
		eclass("stale", base.Add(-2*time.Hour), time.Hour, domain.StatusPlanned),
	)
	lifecycle.failOn["start raced"] = apperrors.New(apperrors.CodeEclassInvalidStatusTransition, "already started")
	lifecycle.failOn["start broken"] = errors.New("bridge down")
	lifecycle.failOn["finish stale"] = &domain.IntegrityError{ClassID: "stale", Op: "finish", Err: domain.ErrNotFound}
	s := New(lifecycle, Config{}, func() time.Time { return base })

	result, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := Result{Started: 1, Failed: 2}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
}

func TestRunTicksImmediatelyAndStopsWithContext(t *testing.T) {
	t.Parallel()

	lifecycle := newFakeLifecycle(eclass("due", base.Add(-time.Minute), time.Hour, domain.StatusPlanned))
	s := New(lifecycle, Config{Interval: time.Hour}, func() time.Time { return base })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(lifecycle.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the first tick")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
	if calls := lifecycle.snapshot(); !slices.Equal(calls, []string{"start due"}) {
		t.Fatalf("calls = %v, want [start due]", calls)
	}
}

func TestRunRequiresLifecycle(t *testing.T) {
	t.Parallel()

	if err := New(nil, Config{}, nil).Run(context.Background()); err == nil {
		t.Fatal("expected missing lifecycle error")
	}
}
