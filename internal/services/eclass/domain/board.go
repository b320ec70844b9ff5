package domain

import (
	"context"
	"errors"
	"log"
)

// refreshBoard repaints the upcoming-classes board of year, posting a new
// one when none exists or the previous message is gone. Failures are logged.
func (m *Manager) refreshBoard(ctx context.Context, year SchoolYear) {
	if m.boards == nil {
		return
	}
	channelID, ok := m.directory.UpcomingChannel(year)
	if !ok {
		return
	}
	unlock := m.locks.Lock("board:" + string(year))
	defer unlock()

	upcoming, err := m.ListUpcoming(ctx, year, DefaultUpcomingWindow)
	if err != nil {
		log.Printf("[e-class:board-%s] warn: list upcoming: %v", year, err)
		return
	}
	content := m.renderer.UpcomingBoard(year, upcoming)

	board, err := m.boards.UpcomingBoard(ctx, year)
	switch {
	case err == nil && board.ChannelID == channelID:
		err := m.gateway.EditMessage(ctx, board.ChannelID, board.MessageID, content)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrMessageNotFound) {
			log.Printf("[e-class:board-%s] warn: edit board: %v", year, err)
			return
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		log.Printf("[e-class:board-%s] warn: load board: %v", year, err)
		return
	}

	messageID, err := m.gateway.SendToChannel(ctx, channelID, content)
	if err != nil {
		log.Printf("[e-class:board-%s] warn: post board: %v", year, err)
		return
	}
	if err := m.boards.SaveUpcomingBoard(ctx, Board{SchoolYear: year, ChannelID: channelID, MessageID: messageID}, m.now()); err != nil {
		log.Printf("[e-class:board-%s] warn: save board: %v", year, err)
	}
}
