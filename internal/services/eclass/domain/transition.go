package domain

import (
	"context"
	"errors"
	"log"
	"slices"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	platformotel "github.com/eclassroom/eclass/internal/platform/otel"
)

// Start moves a planned e-class in progress, clears the subscribe reaction
// and notifies the class channel.
func (m *Manager) Start(ctx context.Context, actor Actor, classID string) (Eclass, error) {
	return m.transition(ctx, "start", actor, classID, []Status{StatusPlanned}, StatusInProgress, func(ctx context.Context, e Eclass) {
		if err := m.platform.ClearReactions(ctx, e.AnnouncementChannelID, e.AnnouncementMessageID); err != nil {
			log.Printf("[e-class:%s] warn: clear reactions: %v", e.ID, err)
		}
		if _, err := m.gateway.SendToChannel(ctx, e.ClassChannelID(), m.renderer.StartNotice(e)); err != nil {
			log.Printf("[e-class:%s] warn: send start notice: %v", e.ID, err)
		}
	})
}

// Finish closes an in-progress e-class and deletes its dedicated role.
func (m *Manager) Finish(ctx context.Context, actor Actor, classID string) (Eclass, error) {
	return m.transition(ctx, "finish", actor, classID, []Status{StatusInProgress}, StatusFinished, func(ctx context.Context, e Eclass) {
		m.deleteRole(ctx, e)
	})
}

// Cancel cancels a planned or in-progress e-class. Its announcement stops
// accepting subscriptions and its dedicated role is deleted.
func (m *Manager) Cancel(ctx context.Context, actor Actor, classID string) (Eclass, error) {
	return m.transition(ctx, "cancel", actor, classID, []Status{StatusPlanned, StatusInProgress}, StatusCanceled, func(ctx context.Context, e Eclass) {
		if err := m.platform.ClearReactions(ctx, e.AnnouncementChannelID, e.AnnouncementMessageID); err != nil {
			log.Printf("[e-class:%s] warn: clear reactions: %v", e.ID, err)
		}
		m.index.Remove(e.AnnouncementMessageID)
		m.deleteRole(ctx, e)
	})
}

// transition persists the status change with a compare-and-set, repaints
// the announcement, then runs the best-effort side effects.
func (m *Manager) transition(
	ctx context.Context,
	op string,
	actor Actor,
	classID string,
	allowed []Status,
	to Status,
	sideEffects func(context.Context, Eclass),
) (_ Eclass, err error) {
	ctx, span := m.tracer.Start(ctx, "eclass."+op)
	defer func() { platformotel.EndSpan(span, err) }()

	unlock := m.locks.Lock(classID)
	defer unlock()

	e, err := m.load(ctx, classID)
	if err != nil {
		return Eclass{}, err
	}
	if !actor.CanManage(e) {
		return Eclass{}, reject(apperrors.CodeForbidden, "only the professor or staff may "+op+" this e-class")
	}
	if !slices.Contains(allowed, e.Status) {
		return Eclass{}, rejectTransition(e, to)
	}

	now := m.now()
	if err := m.store.TransitionStatus(ctx, e.ID, e.Status, to, now); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return Eclass{}, rejectTransition(e, to)
		}
		return Eclass{}, persistFault(e, op, err)
	}
	e.Status = to
	e.UpdatedAt = now

	if err := m.repaint(ctx, op, e); err != nil {
		return e, err
	}
	sideEffects(ctx, e)
	m.refreshBoard(ctx, e.Subject.SchoolYear)

	log.Printf("[e-class:%s] %s: status %s", e.ID, op, e.Status)
	return e, nil
}
