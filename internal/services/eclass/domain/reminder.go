package domain

import (
	"context"
	"log"

	platformotel "github.com/eclassroom/eclass/internal/platform/otel"
)

// RemindClass sends the pre-start reminders of an e-class at most once.
// The reminded flag is claimed in storage before any message goes out, so
// a repeated call reports false and sends nothing. Delivery failures are
// logged and never fail the call.
func (m *Manager) RemindClass(ctx context.Context, classID string) (_ bool, err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.RemindClass")
	defer func() { platformotel.EndSpan(span, err) }()

	unlock := m.locks.Lock(classID)
	defer unlock()

	e, err := m.load(ctx, classID)
	if err != nil {
		return false, err
	}
	if e.Reminded || e.Status.Terminal() {
		return false, nil
	}

	claimed, err := m.store.MarkReminded(ctx, e.ID, m.now())
	if err != nil {
		return false, persistFault(e, "mark reminded", err)
	}
	if !claimed {
		return false, nil
	}
	e.Reminded = true

	if err := m.gateway.SendDirect(ctx, e.ProfessorID, m.renderer.ProfessorReminder(e)); err != nil {
		log.Printf("[e-class:%s] warn: remind professor %s: %v", e.ID, e.ProfessorID, err)
	}
	if _, err := m.gateway.SendToChannel(ctx, e.ClassChannelID(), m.renderer.ChannelReminder(e)); err != nil {
		log.Printf("[e-class:%s] warn: send channel reminder: %v", e.ID, err)
	}
	if len(e.Subscribers) > 0 {
		failed := 0
		for _, result := range m.gateway.BulkSendDirect(ctx, e.Subscribers, m.renderer.SubscriberReminder(e)) {
			if result.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			log.Printf("[e-class:%s] warn: %d of %d subscriber reminders failed", e.ID, failed, len(e.Subscribers))
		}
	}

	log.Printf("[e-class:%s] sent reminders", e.ID)
	return true, nil
}
