package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	platformotel "github.com/eclassroom/eclass/internal/platform/otel"
)

const tracerName = "github.com/eclassroom/eclass/internal/services/eclass/domain"

const (
	// DefaultReminderLead is how long before start subscribers are reminded.
	DefaultReminderLead = 15 * time.Minute
	// DefaultSubscribeEmoji is the reaction that subscribes a member.
	DefaultSubscribeEmoji = "✅"
)

// Config tunes lifecycle behavior.
type Config struct {
	Horizon        Horizon
	ReminderLead   time.Duration
	SubscribeEmoji string
}

// Deps wires the collaborators of a Manager.
type Deps struct {
	Store     Store
	Gateway   Gateway
	Platform  Platform
	Directory Directory
	Renderer  Renderer
	// Boards enables the upcoming-classes board when set.
	Boards BoardStore
	// Index defaults to an empty MemoryIndex.
	Index AnnouncementIndex
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Manager owns the e-class state machine. Operations on the same e-class
// are serialized; operations on different e-classes run in parallel, except
// Create and Update which hold the planning lock from the overlap and role
// name checks until the record is stored.
type Manager struct {
	store     Store
	gateway   Gateway
	platform  Platform
	directory Directory
	renderer  Renderer
	boards    BoardStore
	index     AnnouncementIndex
	overlap   *OverlapChecker
	clock     func() time.Time
	cfg       Config
	validate  *validator.Validate
	locks     *keyedMutex
	planning  sync.Mutex
	tracer    trace.Tracer
}

// NewManager builds a Manager from its collaborators.
func NewManager(deps Deps, cfg Config) (*Manager, error) {
	switch {
	case deps.Store == nil:
		return nil, ErrStoreNotConfigured
	case deps.Gateway == nil:
		return nil, errors.New("eclass gateway is not configured")
	case deps.Platform == nil:
		return nil, errors.New("eclass platform is not configured")
	case deps.Directory == nil:
		return nil, errors.New("eclass directory is not configured")
	case deps.Renderer == nil:
		return nil, errors.New("eclass renderer is not configured")
	}
	if deps.Index == nil {
		deps.Index = NewMemoryIndex()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if cfg.Horizon.Months <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = DefaultReminderLead
	}
	if strings.TrimSpace(cfg.SubscribeEmoji) == "" {
		cfg.SubscribeEmoji = DefaultSubscribeEmoji
	}
	return &Manager{
		store:     deps.Store,
		gateway:   deps.Gateway,
		platform:  deps.Platform,
		directory: deps.Directory,
		renderer:  deps.Renderer,
		boards:    deps.Boards,
		index:     deps.Index,
		overlap:   NewOverlapChecker(deps.Store),
		clock:     deps.Clock,
		cfg:       cfg,
		validate:  newValidator(),
		locks:     newKeyedMutex(),
		tracer:    platformotel.Tracer(tracerName),
	}, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Create plans a new e-class, announces it and creates its dedicated role.
// Nothing is persisted when a rejection is returned; platform side effects
// made before a failure are rolled back.
func (m *Manager) Create(ctx context.Context, input CreateInput) (_ Eclass, err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.Create")
	defer func() { platformotel.EndSpan(span, err) }()

	if err := m.validate.Struct(input); err != nil {
		return Eclass{}, invalidInput(err)
	}
	now := m.now()
	start := input.Start.UTC()
	if !m.cfg.Horizon.Contains(now, start) {
		return Eclass{}, reject(apperrors.CodeEclassOutOfHorizon,
			fmt.Sprintf("start %s is outside the %d month planning horizon", start.Format(time.RFC3339), m.cfg.Horizon.Months))
	}

	m.planning.Lock()
	defer m.planning.Unlock()
	classID := ClassID(input.ProfessorID, start)
	unlock := m.locks.Lock(classID)
	defer unlock()

	conflict, err := m.overlap.Check(ctx, Candidate{
		Start:       start,
		Duration:    input.Duration,
		ProfessorID: input.ProfessorID,
		SchoolYear:  input.Subject.SchoolYear,
	})
	if err != nil {
		return Eclass{}, fmt.Errorf("check overlap: %w", err)
	}
	if err := conflictRejection(conflict); err != nil {
		return Eclass{}, err
	}

	year := input.Subject.SchoolYear
	targetRole := strings.TrimSpace(input.TargetRoleID)
	if targetRole == "" {
		role, ok := m.directory.AudienceRole(year)
		if !ok {
			log.Printf("[e-class:not-created] warn: no audience role configured for %s", year)
			return Eclass{}, reject(apperrors.CodeEclassUnconfiguredRole, fmt.Sprintf("no audience role configured for %s", year))
		}
		targetRole = role
	}

	e := Eclass{
		ID:               classID,
		Start:            start,
		Duration:         input.Duration,
		Subject:          input.Subject,
		Topic:            strings.TrimSpace(input.Topic),
		Place:            input.Place,
		PlaceInformation: strings.TrimSpace(input.PlaceInformation),
		ProfessorID:      input.ProfessorID,
		TargetRoleID:     targetRole,
		IsRecorded:       input.IsRecorded,
		Status:           StatusPlanned,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	e.RoleName = m.renderer.RoleName(e)

	taken, err := m.roleNameTaken(ctx, e.RoleName, "")
	if err != nil {
		return Eclass{}, err
	}
	if taken {
		return Eclass{}, reject(apperrors.CodeEclassAlreadyExists, fmt.Sprintf("role %q already exists", e.RoleName))
	}
	if _, err := m.store.Get(ctx, classID); err == nil {
		return Eclass{}, reject(apperrors.CodeEclassAlreadyExists, fmt.Sprintf("eclass %s already exists", classID))
	} else if !errors.Is(err, ErrNotFound) {
		return Eclass{}, fmt.Errorf("get eclass: %w", err)
	}

	channelID, ok := m.directory.AnnouncementChannel(year)
	if !ok {
		log.Printf("[e-class:not-created] warn: no announcement channel configured for %s", year)
		return Eclass{}, reject(apperrors.CodeEclassUnconfiguredChannel, fmt.Sprintf("no announcement channel configured for %s", year))
	}
	e.AnnouncementChannelID = channelID

	messageID, err := m.gateway.SendToChannel(ctx, channelID, m.renderer.Announcement(e))
	if err != nil {
		return Eclass{}, fmt.Errorf("send announcement: %w", err)
	}
	e.AnnouncementMessageID = messageID
	if err := m.platform.AddReaction(ctx, channelID, messageID, m.cfg.SubscribeEmoji); err != nil {
		log.Printf("[e-class:%s] warn: add subscribe reaction: %v", e.ID, err)
	}

	roleID, err := m.platform.CreateRole(ctx, e.RoleName)
	if err != nil {
		m.rollbackCreate(ctx, e)
		return Eclass{}, fmt.Errorf("create role: %w", err)
	}
	e.ClassRoleID = roleID

	if err := m.store.Insert(ctx, e); err != nil {
		m.rollbackCreate(ctx, e)
		if errors.Is(err, ErrConflict) {
			return Eclass{}, reject(apperrors.CodeEclassAlreadyExists, fmt.Sprintf("eclass %s already exists", classID))
		}
		return Eclass{}, fmt.Errorf("insert eclass: %w", err)
	}
	m.index.Add(messageID)
	m.refreshBoard(ctx, e.Subject.SchoolYear)

	log.Printf("[e-class:%s] created", e.ID)
	return e, nil
}

func conflictRejection(conflict Conflict) error {
	switch conflict {
	case ConflictSchoolYear:
		return reject(apperrors.CodeEclassSchoolYearOverlap, "another e-class is planned for this school year at that time")
	case ConflictProfessor:
		return reject(apperrors.CodeEclassProfessorOverlap, "the professor already has an e-class planned at that time")
	default:
		return nil
	}
}

// roleNameTaken reports whether name is held by a platform role or by an
// active e-class other than excludeID.
func (m *Manager) roleNameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	active, err := m.store.ListByStatus(ctx, StatusPlanned, StatusInProgress)
	if err != nil {
		return false, fmt.Errorf("list active eclasses: %w", err)
	}
	ownRole := ""
	for _, e := range active {
		if e.ID == excludeID {
			ownRole = e.ClassRoleID
			continue
		}
		if e.RoleName == name {
			return true, nil
		}
	}
	roleID, found, err := m.platform.FindRoleByName(ctx, name)
	if err != nil {
		return false, fmt.Errorf("find role: %w", err)
	}
	return found && (ownRole == "" || roleID != ownRole), nil
}

// rollbackCreate undoes the platform side effects of a failed creation.
func (m *Manager) rollbackCreate(ctx context.Context, e Eclass) {
	ctx = context.WithoutCancel(ctx)
	if e.ClassRoleID != "" {
		if err := m.platform.DeleteRole(ctx, e.ClassRoleID); err != nil && !errors.Is(err, ErrRoleNotFound) {
			log.Printf("[e-class:%s] warn: rollback role %s: %v", e.ID, e.ClassRoleID, err)
		}
	}
	if e.AnnouncementMessageID != "" {
		if err := m.gateway.DeleteMessage(ctx, e.AnnouncementChannelID, e.AnnouncementMessageID); err != nil && !errors.Is(err, ErrMessageNotFound) {
			log.Printf("[e-class:%s] warn: rollback announcement %s: %v", e.ID, e.AnnouncementMessageID, err)
		}
	}
}

// load fetches an e-class that the caller named. A missing record is a
// user-facing rejection.
func (m *Manager) load(ctx context.Context, classID string) (Eclass, error) {
	e, err := m.store.Get(ctx, classID)
	if errors.Is(err, ErrNotFound) {
		return Eclass{}, rejectNotFound(classID)
	}
	if err != nil {
		return Eclass{}, fmt.Errorf("get eclass: %w", err)
	}
	return e, nil
}

// persistFault classifies a write error on an e-class that was just read.
func persistFault(e Eclass, op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		fault := &IntegrityError{ClassID: e.ID, Op: op, Err: err}
		log.Printf("[e-class:%s] %v", e.ID, fault)
		return fault
	}
	return fmt.Errorf("%s: %w", op, err)
}

// repaint replaces the announcement with a rendering of e. A vanished
// message is an integrity fault; other gateway failures are logged.
func (m *Manager) repaint(ctx context.Context, op string, e Eclass) error {
	err := m.gateway.EditMessage(ctx, e.AnnouncementChannelID, e.AnnouncementMessageID, m.renderer.Announcement(e))
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMessageNotFound) {
		fault := &IntegrityError{ClassID: e.ID, Op: op, Err: err}
		log.Printf("[e-class:%s] %v", e.ID, fault)
		return fault
	}
	log.Printf("[e-class:%s] warn: repaint announcement after %s: %v", e.ID, op, err)
	return nil
}

func (m *Manager) deleteRole(ctx context.Context, e Eclass) {
	if e.ClassRoleID == "" {
		return
	}
	if err := m.platform.DeleteRole(ctx, e.ClassRoleID); err != nil && !errors.Is(err, ErrRoleNotFound) {
		log.Printf("[e-class:%s] warn: delete role %s: %v", e.ID, e.ClassRoleID, err)
	}
}

func (m *Manager) now() time.Time {
	return m.clock().UTC()
}
