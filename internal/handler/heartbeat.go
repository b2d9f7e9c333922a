package handler

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/notifier/internal/broadcaster"
)

type HeartbeatHandlerInterface interface {
	Handle(ctx context.Context) error
}

type HeartbeatHandler struct {
	registry broadcaster.Registry
}

func NewHeartbeatHandler(registry broadcaster.Registry) *HeartbeatHandler {
	return &HeartbeatHandler{
		registry,
	}
}

func (h *HeartbeatHandler) Handle(ctx context.Context) error {
	session, ok := broadcaster.SessionFromContext(ctx)
	if !ok {
		return errors.New("session not found in context")
	}

	h.registry.SendToSession(session, broadcaster.NewHeartbeat(time.Now().UTC()))

	return nil
}
