package domain

import (
	"context"
	"log"
	"slices"

	apperrors "github.com/eclassroom/eclass/internal/platform/errors"
	platformotel "github.com/eclassroom/eclass/internal/platform/otel"
)

// AddRecordLink appends a recording link and repaints the announcement.
// Unless silent, the link is also posted in the class channel.
func (m *Manager) AddRecordLink(ctx context.Context, actor Actor, classID, link string, silent bool) (_ Eclass, err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.AddRecordLink")
	defer func() { platformotel.EndSpan(span, err) }()

	if err := m.validate.Var(link, "required,url"); err != nil {
		return Eclass{}, invalidInput(err)
	}

	unlock := m.locks.Lock(classID)
	defer unlock()

	e, err := m.loadManaged(ctx, actor, classID)
	if err != nil {
		return Eclass{}, err
	}

	now := m.now()
	if err := m.store.AppendRecordLink(ctx, e.ID, link, now); err != nil {
		return Eclass{}, persistFault(e, "add record link", err)
	}
	e.RecordLinks = append(slices.Clone(e.RecordLinks), link)
	e.UpdatedAt = now

	if err := m.repaint(ctx, "add record link", e); err != nil {
		return e, err
	}
	if !silent {
		if _, err := m.gateway.SendToChannel(ctx, e.ClassChannelID(), m.renderer.RecordLinkNotice(e, link)); err != nil {
			log.Printf("[e-class:%s] warn: send record link notice: %v", e.ID, err)
		}
	}

	log.Printf("[e-class:%s] added record link", e.ID)
	return e, nil
}

// RemoveRecordLink removes every occurrence of link and repaints the
// announcement.
func (m *Manager) RemoveRecordLink(ctx context.Context, actor Actor, classID, link string) (_ Eclass, err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.RemoveRecordLink")
	defer func() { platformotel.EndSpan(span, err) }()

	if err := m.validate.Var(link, "required"); err != nil {
		return Eclass{}, invalidInput(err)
	}

	unlock := m.locks.Lock(classID)
	defer unlock()

	e, err := m.loadManaged(ctx, actor, classID)
	if err != nil {
		return Eclass{}, err
	}

	now := m.now()
	if err := m.store.RemoveRecordLink(ctx, e.ID, link, now); err != nil {
		return Eclass{}, persistFault(e, "remove record link", err)
	}
	e.RecordLinks = slices.DeleteFunc(slices.Clone(e.RecordLinks), func(existing string) bool {
		return existing == link
	})
	e.UpdatedAt = now

	if err := m.repaint(ctx, "remove record link", e); err != nil {
		return e, err
	}

	log.Printf("[e-class:%s] removed record link", e.ID)
	return e, nil
}

func (m *Manager) loadManaged(ctx context.Context, actor Actor, classID string) (Eclass, error) {
	e, err := m.load(ctx, classID)
	if err != nil {
		return Eclass{}, err
	}
	if !actor.CanManage(e) {
		return Eclass{}, reject(apperrors.CodeForbidden, "only the professor or staff may manage this e-class")
	}
	return e, nil
}
