package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

// SendToChannel posts content and returns the new message id.
func (c *Client) SendToChannel(ctx context.Context, channelID string, content domain.Content) (string, error) {
	var result messageResult
	err := c.call(ctx, opSendChannel, channelMessage{ChannelID: channelID, Content: toWire(content)}, &result)
	if err != nil {
		return "", err
	}
	if result.MessageID == "" {
		return "", fmt.Errorf("bridge %s: empty message id", opSendChannel)
	}
	return result.MessageID, nil
}

// EditMessage replaces a message wholesale.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, content domain.Content) error {
	err := c.call(ctx, opEditMessage, channelMessage{ChannelID: channelID, MessageID: messageID, Content: toWire(content)}, nil)
	return mapNotFound(err, domain.ErrMessageNotFound)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.call(ctx, opDeleteMessage, messageRef{ChannelID: channelID, MessageID: messageID}, nil)
	return mapNotFound(err, domain.ErrMessageNotFound)
}

// SendDirect sends a private message to one user.
func (c *Client) SendDirect(ctx context.Context, userID string, content domain.Content) error {
	return c.call(ctx, opSendDirect, directMessage{UserID: userID, Content: toWire(content)}, nil)
}

// BulkSendDirect sends content to every user in order and reports each outcome.
func (c *Client) BulkSendDirect(ctx context.Context, userIDs []string, content domain.Content) []domain.DeliveryResult {
	results := make([]domain.DeliveryResult, 0, len(userIDs))
	for _, userID := range userIDs {
		results = append(results, domain.DeliveryResult{
			UserID: userID,
			Err:    c.SendDirect(ctx, userID, content),
		})
	}
	return results
}

// FindRoleByName looks up a role by its exact name.
func (c *Client) FindRoleByName(ctx context.Context, name string) (string, bool, error) {
	var result roleResult
	if err := c.call(ctx, opFindRole, roleRef{Name: name}, &result); err != nil {
		return "", false, err
	}
	return result.RoleID, result.Found, nil
}

// RoleExists reports whether roleID is still defined.
func (c *Client) RoleExists(ctx context.Context, roleID string) (bool, error) {
	var result presenceResult
	if err := c.call(ctx, opRoleExists, roleRef{RoleID: roleID}, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

// CreateRole creates a role and returns its id.
func (c *Client) CreateRole(ctx context.Context, name string) (string, error) {
	var result roleResult
	if err := c.call(ctx, opCreateRole, roleRef{Name: name}, &result); err != nil {
		return "", err
	}
	if result.RoleID == "" {
		return "", fmt.Errorf("bridge %s: empty role id", opCreateRole)
	}
	return result.RoleID, nil
}

// RenameRole renames an existing role.
func (c *Client) RenameRole(ctx context.Context, roleID, name string) error {
	err := c.call(ctx, opRenameRole, roleRef{RoleID: roleID, Name: name}, nil)
	return mapNotFound(err, domain.ErrRoleNotFound)
}

// DeleteRole deletes a role.
func (c *Client) DeleteRole(ctx context.Context, roleID string) error {
	err := c.call(ctx, opDeleteRole, roleRef{RoleID: roleID}, nil)
	return mapNotFound(err, domain.ErrRoleNotFound)
}

// MemberHasRole reports whether userID holds roleID.
func (c *Client) MemberHasRole(ctx context.Context, userID, roleID string) (bool, error) {
	var result presenceResult
	err := c.call(ctx, opMemberHasRole, memberRole{UserID: userID, RoleID: roleID}, &result)
	if err != nil {
		return false, mapNotFound(err, domain.ErrRoleNotFound)
	}
	return result.Exists, nil
}

// GrantRole gives roleID to userID.
func (c *Client) GrantRole(ctx context.Context, userID, roleID string) error {
	err := c.call(ctx, opGrantRole, memberRole{UserID: userID, RoleID: roleID}, nil)
	return mapNotFound(err, domain.ErrRoleNotFound)
}

// RevokeRole takes roleID from userID.
func (c *Client) RevokeRole(ctx context.Context, userID, roleID string) error {
	err := c.call(ctx, opRevokeRole, memberRole{UserID: userID, RoleID: roleID}, nil)
	return mapNotFound(err, domain.ErrRoleNotFound)
}

// AddReaction reacts to a message as the bot.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	err := c.call(ctx, opAddReaction, reactionRef{ChannelID: channelID, MessageID: messageID, Emoji: emoji}, nil)
	return mapNotFound(err, domain.ErrMessageNotFound)
}

// ClearReactions removes every reaction from a message.
func (c *Client) ClearReactions(ctx context.Context, channelID, messageID string) error {
	err := c.call(ctx, opClearReactions, reactionRef{ChannelID: channelID, MessageID: messageID}, nil)
	return mapNotFound(err, domain.ErrMessageNotFound)
}

func mapNotFound(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errNotFound) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}
