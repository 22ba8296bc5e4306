package core

import (
	"context"

	"github.com/care/posturewatch/internal/control"
	"github.com/care/posturewatch/internal/store"
)

// CommandSource delivers remote commands and accepts their responses
type CommandSource interface {
	Commands() <-chan control.Command
	Respond(resp control.Response)
	Stop() error
}

// HistoryWriter persists finished sessions
type HistoryWriter interface {
	InsertSession(ctx context.Context, r store.SessionRecord) (int64, error)
	Close() error
}
