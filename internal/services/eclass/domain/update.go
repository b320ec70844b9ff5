package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	platformotel "github.com/eclassroom/eclass/internal/platform/otel"
)

// Update edits a planned e-class. A new window is checked against the
// planning horizon and other planned e-classes; a changed role name renames
// the class role. The identifier never changes.
func (m *Manager) Update(ctx context.Context, input UpdateInput) (_ Eclass, err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.Update")
	defer func() { platformotel.EndSpan(span, err) }()

	if err := m.validate.Struct(input); err != nil {
		return Eclass{}, invalidInput(err)
	}

	m.planning.Lock()
	defer m.planning.Unlock()
	unlock := m.locks.Lock(input.ClassID)
	defer unlock()

	current, err := m.loadManaged(ctx, input.Actor, input.ClassID)
	if err != nil {
		return Eclass{}, err
	}
	if current.Status != StatusPlanned {
		return Eclass{}, reject(apperrors.CodeEclassStatusDisallowsOp,
			fmt.Sprintf("eclass %s is %s and can no longer be edited", current.ID, current.Status))
	}

	next := applyUpdate(current, input)
	if next.Place != PlaceInPlatform && next.PlaceInformation == "" {
		return Eclass{}, reject(apperrors.CodeInvalidInput, "place information is required for "+string(next.Place))
	}

	now := m.now()
	if !next.Start.Equal(current.Start) && !m.cfg.Horizon.Contains(now, next.Start) {
		return Eclass{}, reject(apperrors.CodeEclassOutOfHorizon,
			fmt.Sprintf("start %s is outside the %d month planning horizon", next.Start.Format(time.RFC3339), m.cfg.Horizon.Months))
	}
	if !next.Start.Equal(current.Start) || next.Duration != current.Duration {
		conflict, err := m.overlap.Check(ctx, Candidate{
			Start:       next.Start,
			Duration:    next.Duration,
			ProfessorID: next.ProfessorID,
			SchoolYear:  next.Subject.SchoolYear,
			ExcludeID:   next.ID,
		})
		if err != nil {
			return Eclass{}, fmt.Errorf("check overlap: %w", err)
		}
		if err := conflictRejection(conflict); err != nil {
			return Eclass{}, err
		}
	}

	next.RoleName = m.renderer.RoleName(next)
	renamed := next.RoleName != current.RoleName
	if renamed {
		taken, err := m.roleNameTaken(ctx, next.RoleName, next.ID)
		if err != nil {
			return Eclass{}, err
		}
		if taken {
			return Eclass{}, reject(apperrors.CodeEclassAlreadyExists, fmt.Sprintf("role %q already exists", next.RoleName))
		}
	}

	next.UpdatedAt = now
	if err := m.store.UpdateDetails(ctx, next); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return Eclass{}, reject(apperrors.CodeEclassStatusDisallowsOp,
				fmt.Sprintf("eclass %s is no longer planned", next.ID))
		}
		return Eclass{}, persistFault(next, "update", err)
	}
	if renamed && next.ClassRoleID != "" {
		if err := m.platform.RenameRole(ctx, next.ClassRoleID, next.RoleName); err != nil {
			log.Printf("[e-class:%s] warn: rename role %s: %v", next.ID, next.ClassRoleID, err)
		}
	}
	if err := m.repaint(ctx, "update", next); err != nil {
		return next, err
	}
	m.refreshBoard(ctx, next.Subject.SchoolYear)

	log.Printf("[e-class:%s] updated", next.ID)
	return next, nil
}

func applyUpdate(e Eclass, input UpdateInput) Eclass {
	if input.Topic != nil {
		e.Topic = strings.TrimSpace(*input.Topic)
	}
	if input.Start != nil {
		e.Start = input.Start.UTC()
	}
	if input.Duration != nil {
		e.Duration = *input.Duration
	}
	if input.Place != nil {
		e.Place = *input.Place
	}
	if input.PlaceInformation != nil {
		e.PlaceInformation = strings.TrimSpace(*input.PlaceInformation)
	}
	if input.IsRecorded != nil {
		e.IsRecorded = *input.IsRecorded
	}
	return e
}
