package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	"go.uber.org/zap"
)

const (
	FrameTypeAuth           = "auth"
	FrameTypeOrderUpdate    = "order_update"
	FrameTypeDriverLocation = "driver_location"
	FrameTypeSubscribeOrder = "subscribe_order"
	FrameTypeHeartbeat      = "heartbeat"
)

var errUnknownFrameType = errors.New("unknown frame type")

type envelope struct {
	Type string `json:"type"`
}

// Router dispatches inbound frames of an active session to their handler.
// Frames are never answered directly; handlers deliver through the registry.
type Router struct {
	logger      *zap.Logger
	registry    broadcaster.Registry
	errorFrames bool

	heartbeatHandler      handler.HeartbeatHandlerInterface
	orderUpdateHandler    handler.OrderUpdateHandlerInterface
	driverLocationHandler handler.DriverLocationHandlerInterface
	subscribeOrderHandler handler.SubscribeOrderHandlerInterface
}

func NewRouter(
	logger *zap.Logger,
	registry broadcaster.Registry,
	errorFrames bool,
	heartbeatHandler handler.HeartbeatHandlerInterface,
	orderUpdateHandler handler.OrderUpdateHandlerInterface,
	driverLocationHandler handler.DriverLocationHandlerInterface,
	subscribeOrderHandler handler.SubscribeOrderHandlerInterface,
) *Router {
	return &Router{
		logger,
		registry,
		errorFrames,
		heartbeatHandler,
		orderUpdateHandler,
		driverLocationHandler,
		subscribeOrderHandler,
	}
}

// Route handles one frame. Rejected or malformed frames are dropped and the
// session stays open.
func (r *Router) Route(ctx context.Context, session *broadcaster.Session, data []byte) {
	frameType, err := r.Handle(ctx, data)
	if err == nil {
		return
	}

	handlerErr := r.mapError(err)

	r.logger.Debug("frame rejected",
		zap.String("sessionId", session.Id),
		zap.String("room", session.Room),
		zap.String("type", frameType),
		zap.String("code", string(handlerErr.Code)),
		zap.Error(err))

	if r.errorFrames {
		r.registry.SendToSession(session,
			broadcaster.NewErrorFrame(string(handlerErr.Code), handlerErr.Message))
	}
}

func (r *Router) Handle(ctx context.Context, data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid frame: "+err.Error()))
	}

	switch env.Type {
	case FrameTypeHeartbeat:
		return env.Type, r.heartbeatHandler.Handle(ctx)
	case FrameTypeOrderUpdate:
		var req handler.OrderUpdateRequest
		if err := decodeFrame(data, &req); err != nil {
			return env.Type, err
		}

		return env.Type, r.orderUpdateHandler.Handle(ctx, req)
	case FrameTypeDriverLocation:
		var req handler.DriverLocationRequest
		if err := decodeFrame(data, &req); err != nil {
			return env.Type, err
		}

		return env.Type, r.driverLocationHandler.Handle(ctx, req)
	case FrameTypeSubscribeOrder:
		var req handler.SubscribeOrderRequest
		if err := decodeFrame(data, &req); err != nil {
			return env.Type, err
		}

		return env.Type, r.subscribeOrderHandler.Handle(ctx, req)
	case FrameTypeAuth:
		// Repeated auth frames after the handshake are ignored.
		return env.Type, nil
	default:
		return env.Type, ierr.New(ierr.ErrorCodeInvalidArgument, errUnknownFrameType)
	}
}

func (r *Router) mapError(err error) ierr.Error {
	var handlerErr ierr.Error
	if errors.As(err, &handlerErr) {
		return handlerErr
	}

	r.logger.Error("error in frame handler", zap.Error(err))

	return ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
}

func decodeFrame(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid frame: "+err.Error()))
	}

	return nil
}
