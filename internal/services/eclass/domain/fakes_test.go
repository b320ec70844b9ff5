package domain

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]Eclass
	inserts  int
	filters  []string
	failNext map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Eclass), failNext: make(map[string]error)}
}

func (s *fakeStore) fail(method string, err error) {
	s.mu.Lock()
	s.failNext[method] = err
	s.mu.Unlock()
}

func (s *fakeStore) takeFailure(method string) error {
	err := s.failNext[method]
	delete(s.failNext, method)
	return err
}

func (s *fakeStore) put(e Eclass) {
	s.mu.Lock()
	s.records[e.ID] = cloneEclass(e)
	s.mu.Unlock()
}

func (s *fakeStore) record(id string) Eclass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEclass(s.records[id])
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *fakeStore) Insert(_ context.Context, e Eclass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("Insert"); err != nil {
		return err
	}
	if _, ok := s.records[e.ID]; ok {
		return ErrConflict
	}
	s.inserts++
	s.records[e.ID] = cloneEclass(e)
	return nil
}

func (s *fakeStore) Get(_ context.Context, classID string) (Eclass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[classID]
	if !ok {
		return Eclass{}, ErrNotFound
	}
	return cloneEclass(e), nil
}

func (s *fakeStore) FindByAnnouncementMessage(_ context.Context, messageID string) (Eclass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.records {
		if e.AnnouncementMessageID == messageID {
			return cloneEclass(e), nil
		}
	}
	return Eclass{}, ErrNotFound
}

func (s *fakeStore) ListOverlapping(_ context.Context, start, end time.Time, excludeID string) ([]Eclass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Eclass
	for _, e := range s.sorted() {
		if e.Status == StatusPlanned && e.ID != excludeID && Intersects(e.Start, e.End(), start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByStatus(_ context.Context, statuses ...Status) ([]Eclass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Eclass
	for _, e := range s.sorted() {
		if slices.Contains(statuses, e.Status) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) List(_ context.Context, filter string, pageSize int, _ string) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	if err := s.takeFailure("List"); err != nil {
		return Page{}, err
	}
	all := s.sorted()
	if len(all) > pageSize {
		all = all[:pageSize]
	}
	return Page{Eclasses: all}, nil
}

func (s *fakeStore) TransitionStatus(_ context.Context, classID string, from, to Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("TransitionStatus"); err != nil {
		return err
	}
	e, ok := s.records[classID]
	if !ok {
		return ErrNotFound
	}
	if e.Status != from {
		return ErrStatusConflict
	}
	e.Status = to
	e.UpdatedAt = at
	s.records[classID] = e
	return nil
}

func (s *fakeStore) MarkReminded(_ context.Context, classID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[classID]
	if !ok {
		return false, ErrNotFound
	}
	if e.Reminded {
		return false, nil
	}
	e.Reminded = true
	e.UpdatedAt = at
	s.records[classID] = e
	return true, nil
}

func (s *fakeStore) AddSubscriber(_ context.Context, classID, userID string, at time.Time) error {
	return s.mutate(classID, at, func(e *Eclass) {
		if !slices.Contains(e.Subscribers, userID) {
			e.Subscribers = append(e.Subscribers, userID)
		}
	})
}

func (s *fakeStore) RemoveSubscriber(_ context.Context, classID, userID string, at time.Time) error {
	return s.mutate(classID, at, func(e *Eclass) {
		e.Subscribers = slices.DeleteFunc(e.Subscribers, func(id string) bool { return id == userID })
	})
}

func (s *fakeStore) AppendRecordLink(_ context.Context, classID, link string, at time.Time) error {
	return s.mutate(classID, at, func(e *Eclass) {
		e.RecordLinks = append(e.RecordLinks, link)
	})
}

func (s *fakeStore) RemoveRecordLink(_ context.Context, classID, link string, at time.Time) error {
	return s.mutate(classID, at, func(e *Eclass) {
		e.RecordLinks = slices.DeleteFunc(e.RecordLinks, func(l string) bool { return l == link })
	})
}

func (s *fakeStore) UpdateDetails(_ context.Context, next Eclass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[next.ID]
	if !ok {
		return ErrNotFound
	}
	if e.Status != StatusPlanned {
		return ErrStatusConflict
	}
	e.Topic = next.Topic
	e.Start = next.Start
	e.Duration = next.Duration
	e.Place = next.Place
	e.PlaceInformation = next.PlaceInformation
	e.IsRecorded = next.IsRecorded
	e.RoleName = next.RoleName
	e.UpdatedAt = next.UpdatedAt
	s.records[next.ID] = e
	return nil
}

func (s *fakeStore) mutate(classID string, at time.Time, fn func(*Eclass)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[classID]
	if !ok {
		return ErrNotFound
	}
	fn(&e)
	e.UpdatedAt = at
	s.records[classID] = e
	return nil
}

func (s *fakeStore) sorted() []Eclass {
	out := make([]Eclass, 0, len(s.records))
	for _, e := range s.records {
		out = append(out, cloneEclass(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneEclass(e Eclass) Eclass {
	e.Subscribers = slices.Clone(e.Subscribers)
	e.RecordLinks = slices.Clone(e.RecordLinks)
	return e
}

type sentMessage struct {
	ChannelID string
	MessageID string
	Content   Content
}

type fakeGateway struct {
	mu          sync.Mutex
	nextID      int
	channel     []sentMessage
	edits       []sentMessage
	deleted     []string
	direct      map[string][]Content
	missing     map[string]bool
	failDirect  map[string]bool
	failChannel bool
	failEdit    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		direct:     make(map[string][]Content),
		missing:    make(map[string]bool),
		failDirect: make(map[string]bool),
	}
}

func (g *fakeGateway) SendToChannel(_ context.Context, channelID string, content Content) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failChannel {
		return "", fmt.Errorf("channel %s unavailable", channelID)
	}
	g.nextID++
	id := fmt.Sprintf("msg-%d", g.nextID)
	g.channel = append(g.channel, sentMessage{ChannelID: channelID, MessageID: id, Content: content})
	return id, nil
}

func (g *fakeGateway) EditMessage(_ context.Context, channelID, messageID string, content Content) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.missing[messageID] {
		return ErrMessageNotFound
	}
	if g.failEdit != nil {
		return g.failEdit
	}
	g.edits = append(g.edits, sentMessage{ChannelID: channelID, MessageID: messageID, Content: content})
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _ string, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *fakeGateway) SendDirect(_ context.Context, userID string, content Content) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDirect[userID] {
		return fmt.Errorf("user %s does not accept direct messages", userID)
	}
	g.direct[userID] = append(g.direct[userID], content)
	return nil
}

func (g *fakeGateway) BulkSendDirect(ctx context.Context, userIDs []string, content Content) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(userIDs))
	for _, userID := range userIDs {
		results = append(results, DeliveryResult{UserID: userID, Err: g.SendDirect(ctx, userID, content)})
	}
	return results
}

func (g *fakeGateway) channelMessages(channelID string) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMessage
	for _, m := range g.channel {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (g *fakeGateway) lastEdit() (sentMessage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.edits) == 0 {
		return sentMessage{}, false
	}
	return g.edits[len(g.edits)-1], true
}

func (g *fakeGateway) directCount(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.direct[userID])
}

type fakePlatform struct {
	mu         sync.Mutex
	nextID     int
	roles      map[string]string // id -> name
	members    map[string]map[string]bool
	reactions  map[string][]string
	cleared    []string
	failCreate error
	// beforeCreate runs outside the lock when set.
	beforeCreate func(name string)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		roles:     make(map[string]string),
		members:   make(map[string]map[string]bool),
		reactions: make(map[string][]string),
	}
}

func (p *fakePlatform) FindRoleByName(_ context.Context, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, roleName := range p.roles {
		if roleName == name {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (p *fakePlatform) RoleExists(_ context.Context, roleID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.roles[roleID]
	return ok, nil
}

func (p *fakePlatform) CreateRole(_ context.Context, name string) (string, error) {
	if p.beforeCreate != nil {
		p.beforeCreate(name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failCreate != nil {
		return "", p.failCreate
	}
	p.nextID++
	id := fmt.Sprintf("role-%d", p.nextID)
	p.roles[id] = name
	return id, nil
}

func (p *fakePlatform) RenameRole(_ context.Context, roleID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	p.roles[roleID] = name
	return nil
}

func (p *fakePlatform) DeleteRole(_ context.Context, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	delete(p.roles, roleID)
	for _, held := range p.members {
		delete(held, roleID)
	}
	return nil
}

func (p *fakePlatform) MemberHasRole(_ context.Context, userID, roleID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.members[userID][roleID], nil
}

func (p *fakePlatform) GrantRole(_ context.Context, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.members[userID] == nil {
		p.members[userID] = make(map[string]bool)
	}
	p.members[userID][roleID] = true
	return nil
}

func (p *fakePlatform) RevokeRole(_ context.Context, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members[userID], roleID)
	return nil
}

func (p *fakePlatform) AddReaction(_ context.Context, _, messageID, emoji string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions[messageID] = append(p.reactions[messageID], emoji)
	return nil
}

func (p *fakePlatform) ClearReactions(_ context.Context, _, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.reactions, messageID)
	p.cleared = append(p.cleared, messageID)
	return nil
}

func (p *fakePlatform) hasRole(roleID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.roles[roleID]
	return ok
}

func (p *fakePlatform) holds(userID, roleID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.members[userID][roleID]
}

type fakeDirectory struct {
	channels map[SchoolYear]string
	roles    map[SchoolYear]string
	upcoming map[SchoolYear]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		channels: map[SchoolYear]string{SchoolYearL1: "ann-l1", SchoolYearL2: "ann-l2", SchoolYearL3: "ann-l3"},
		roles:    map[SchoolYear]string{SchoolYearL1: "aud-l1", SchoolYearL2: "aud-l2", SchoolYearL3: "aud-l3"},
	}
}

func (d *fakeDirectory) AnnouncementChannel(year SchoolYear) (string, bool) {
	id, ok := d.channels[year]
	return id, ok
}

func (d *fakeDirectory) AudienceRole(year SchoolYear) (string, bool) {
	id, ok := d.roles[year]
	return id, ok
}

func (d *fakeDirectory) UpcomingChannel(year SchoolYear) (string, bool) {
	id, ok := d.upcoming[year]
	return id, ok
}

type fakeBoards struct {
	mu     sync.Mutex
	boards map[SchoolYear]Board
	saves  int
}

func newFakeBoards() *fakeBoards {
	return &fakeBoards{boards: make(map[SchoolYear]Board)}
}

func (b *fakeBoards) UpcomingBoard(_ context.Context, year SchoolYear) (Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	board, ok := b.boards[year]
	if !ok {
		return Board{}, ErrNotFound
	}
	return board, nil
}

func (b *fakeBoards) SaveUpcomingBoard(_ context.Context, board Board, _ time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.boards[board.SchoolYear] = board
	b.saves++
	return nil
}

// fakeRenderer encodes the fields the tests assert on into plain text.
type fakeRenderer struct{}

func (fakeRenderer) Announcement(e Eclass) Content {
	return Content{Text: fmt.Sprintf("announcement %s %s links=%d", e.ID, e.Status, len(e.RecordLinks))}
}
func (fakeRenderer) StartNotice(e Eclass) Content { return Content{Text: "start " + e.ID} }
func (fakeRenderer) RecordLinkNotice(e Eclass, link string) Content {
	return Content{Text: "link " + e.ID + " " + link}
}
func (fakeRenderer) ProfessorReminder(e Eclass) Content {
	return Content{Text: "prof reminder " + e.ID}
}
func (fakeRenderer) ChannelReminder(e Eclass) Content {
	return Content{Text: "channel reminder " + e.ID}
}
func (fakeRenderer) SubscriberReminder(e Eclass) Content { return Content{Text: "reminder " + e.ID} }
func (fakeRenderer) Subscribed(e Eclass) Content         { return Content{Text: "subscribed " + e.ID} }
func (fakeRenderer) Unsubscribed(e Eclass) Content       { return Content{Text: "unsubscribed " + e.ID} }
func (fakeRenderer) UpcomingBoard(year SchoolYear, eclasses []Eclass) Content {
	return Content{Text: fmt.Sprintf("board %s %d", year, len(eclasses))}
}
func (fakeRenderer) RoleName(e Eclass) string {
	return fmt.Sprintf("%s: %s (%s)", e.Subject.Name, e.Topic, e.Start.Format("02/01 15:04"))
}

type harness struct {
	store     *fakeStore
	gateway   *fakeGateway
	platform  *fakePlatform
	directory *fakeDirectory
	index     *MemoryIndex
	manager   *Manager
	now       time.Time
}

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     newFakeStore(),
		gateway:   newFakeGateway(),
		platform:  newFakePlatform(),
		directory: newFakeDirectory(),
		index:     NewMemoryIndex(),
		now:       testNow,
	}
	manager, err := NewManager(Deps{
		Store:     h.store,
		Gateway:   h.gateway,
		Platform:  h.platform,
		Directory: h.directory,
		Renderer:  fakeRenderer{},
		Index:     h.index,
		Clock:     func() time.Time { return h.now },
	}, Config{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	h.manager = manager
	return h
}

func subjectFor(year SchoolYear) Subject {
	return Subject{
		Name:          "Maths " + string(year),
		SchoolYear:    year,
		TextChannelID: "text-" + string(year),
		Emoji:         ":abacus:",
	}
}

func createInput(professor string, year SchoolYear, start time.Time, duration time.Duration) CreateInput {
	return CreateInput{
		ProfessorID: professor,
		Subject:     subjectFor(year),
		Topic:       "Integrals",
		Start:       start,
		Duration:    duration,
		Place:       PlaceInPlatform,
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}
