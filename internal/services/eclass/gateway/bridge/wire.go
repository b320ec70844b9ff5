package bridge

import (
	"encoding/json"

	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

// Operation names understood by the chat bridge.
const (
	opSendChannel    = "channel.send"
	opEditMessage    = "message.edit"
	opDeleteMessage  = "message.delete"
	opSendDirect     = "direct.send"
	opFindRole       = "role.find"
	opRoleExists     = "role.exists"
	opCreateRole     = "role.create"
	opRenameRole     = "role.rename"
	opDeleteRole     = "role.delete"
	opMemberHasRole  = "member.has_role"
	opGrantRole      = "member.grant_role"
	opRevokeRole     = "member.revoke_role"
	opAddReaction    = "reaction.add"
	opClearReactions = "reaction.clear"

	eventReactionAdd    = "reaction.add"
	eventReactionRemove = "reaction.remove"
)

// Error codes returned by the chat bridge.
const (
	codeNotFound = "not_found"
)

type request struct {
	ID      uint64 `json:"id"`
	Op      string `json:"op"`
	Payload any    `json:"payload,omitempty"`
}

// frame is any inbound message: a response carries an id, an event carries
// an event name.
type frame struct {
	ID     uint64          `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Error  *wireError      `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireContent struct {
	Text  string     `json:"text,omitempty"`
	Embed *wireEmbed `json:"embed,omitempty"`
}

type wireEmbed struct {
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Author      string      `json:"author,omitempty"`
	Footer      string      `json:"footer,omitempty"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	Color       int         `json:"color,omitempty"`
	Fields      []wireField `json:"fields,omitempty"`
}

type wireField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type channelMessage struct {
	ChannelID string      `json:"channel_id"`
	MessageID string      `json:"message_id,omitempty"`
	Content   wireContent `json:"content"`
}

type messageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type directMessage struct {
	UserID  string      `json:"user_id"`
	Content wireContent `json:"content"`
}

type roleRef struct {
	RoleID string `json:"role_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

type memberRole struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

type reactionRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji,omitempty"`
}

type reactionEvent struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	Bot       bool   `json:"bot,omitempty"`
}

type messageResult struct {
	MessageID string `json:"message_id"`
}

type roleResult struct {
	RoleID string `json:"role_id"`
	Found  bool   `json:"found"`
}

type presenceResult struct {
	Exists bool `json:"exists"`
}

func toWire(content domain.Content) wireContent {
	out := wireContent{Text: content.Text}
	if content.Embed == nil {
		return out
	}
	embed := content.Embed
	out.Embed = &wireEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Author:      embed.Author,
		Footer:      embed.Footer,
		Thumbnail:   embed.Thumbnail,
		Color:       embed.Color,
	}
	for _, field := range embed.Fields {
		out.Embed.Fields = append(out.Embed.Fields, wireField{Name: field.Name, Value: field.Value, Inline: field.Inline})
	}
	return out
}
