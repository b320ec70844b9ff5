package domain

import (
	"context"
	"errors"
	"fmt"
	"log"

	platformotel "github.com/eclassroom/eclass/internal/platform/otel"
)

// SubscribeMember adds userID to the subscribers and grants the class role.
// It silently does nothing when the e-class is not planned or userID is the
// professor. A missing class role is logged and ignored.
func (m *Manager) SubscribeMember(ctx context.Context, classID, userID string) (err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.SubscribeMember")
	defer func() { platformotel.EndSpan(span, err) }()

	unlock := m.locks.Lock(classID)
	defer unlock()

	e, err := m.load(ctx, classID)
	if err != nil {
		return err
	}
	if e.Status != StatusPlanned || userID == "" || userID == e.ProfessorID {
		return nil
	}
	ok, err := m.classRoleExists(ctx, e)
	if err != nil || !ok {
		return err
	}

	if err := m.store.AddSubscriber(ctx, e.ID, userID, m.now()); err != nil {
		return persistFault(e, "add subscriber", err)
	}
	has, err := m.platform.MemberHasRole(ctx, userID, e.ClassRoleID)
	if err != nil {
		return fmt.Errorf("check member role: %w", err)
	}
	if !has {
		if err := m.platform.GrantRole(ctx, userID, e.ClassRoleID); err != nil {
			return fmt.Errorf("grant class role: %w", err)
		}
	}
	if err := m.gateway.SendDirect(ctx, userID, m.renderer.Subscribed(e)); err != nil {
		log.Printf("[e-class:%s] warn: confirm subscription to %s: %v", e.ID, userID, err)
	}

	log.Printf("[e-class:%s] subscribed member %s", e.ID, userID)
	return nil
}

// UnsubscribeMember removes userID from the subscribers and revokes the
// class role. It mirrors SubscribeMember's no-op policy.
func (m *Manager) UnsubscribeMember(ctx context.Context, classID, userID string) (err error) {
	ctx, span := m.tracer.Start(ctx, "eclass.UnsubscribeMember")
	defer func() { platformotel.EndSpan(span, err) }()

	unlock := m.locks.Lock(classID)
	defer unlock()

	e, err := m.load(ctx, classID)
	if err != nil {
		return err
	}
	if e.Status != StatusPlanned || userID == "" {
		return nil
	}
	ok, err := m.classRoleExists(ctx, e)
	if err != nil || !ok {
		return err
	}

	if err := m.store.RemoveSubscriber(ctx, e.ID, userID, m.now()); err != nil {
		return persistFault(e, "remove subscriber", err)
	}
	has, err := m.platform.MemberHasRole(ctx, userID, e.ClassRoleID)
	if err != nil {
		return fmt.Errorf("check member role: %w", err)
	}
	if has {
		if err := m.platform.RevokeRole(ctx, userID, e.ClassRoleID); err != nil {
			return fmt.Errorf("revoke class role: %w", err)
		}
	}
	if err := m.gateway.SendDirect(ctx, userID, m.renderer.Unsubscribed(e)); err != nil {
		log.Printf("[e-class:%s] warn: confirm unsubscription to %s: %v", e.ID, userID, err)
	}

	log.Printf("[e-class:%s] unsubscribed member %s", e.ID, userID)
	return nil
}

func (m *Manager) classRoleExists(ctx context.Context, e Eclass) (bool, error) {
	if e.ClassRoleID == "" {
		log.Printf("[e-class:%s] warn: no class role recorded", e.ID)
		return false, nil
	}
	ok, err := m.platform.RoleExists(ctx, e.ClassRoleID)
	if err != nil {
		return false, fmt.Errorf("check class role: %w", err)
	}
	if !ok {
		log.Printf("[e-class:%s] warn: the role with id %s does not exist", e.ID, e.ClassRoleID)
	}
	return ok, nil
}

// Reaction is a reaction added to or removed from a chat message. Bot is
// set when the reacting account is a bot, including this service's own.
type Reaction struct {
	MessageID string
	UserID    string
	Emoji     string
	Bot       bool
	Added     bool
}

// HandleReaction subscribes or unsubscribes the reacting member when the
// reaction targets an active announcement. It reports whether the reaction
// was routed to an e-class.
func (m *Manager) HandleReaction(ctx context.Context, reaction Reaction) (bool, error) {
	if reaction.Bot || !m.index.Contains(reaction.MessageID) || reaction.Emoji != m.cfg.SubscribeEmoji {
		return false, nil
	}
	e, err := m.store.FindByAnnouncementMessage(ctx, reaction.MessageID)
	if errors.Is(err, ErrNotFound) {
		m.index.Remove(reaction.MessageID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find eclass by announcement: %w", err)
	}
	if reaction.Added {
		return true, m.SubscribeMember(ctx, e.ID, reaction.UserID)
	}
	return true, m.UnsubscribeMember(ctx, e.ID, reaction.UserID)
}

// RebuildIndex indexes the announcements of every planned e-class and
// returns how many were added.
func (m *Manager) RebuildIndex(ctx context.Context) (int, error) {
	planned, err := m.store.ListByStatus(ctx, StatusPlanned)
	if err != nil {
		return 0, fmt.Errorf("list planned eclasses: %w", err)
	}
	for _, e := range planned {
		m.index.Add(e.AnnouncementMessageID)
	}
	return len(planned), nil
}
