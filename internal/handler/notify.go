package handler

import (
	"context"

	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/ierr"
)

type OrderStatusChangeRequest struct {
	OrderId int64  `json:"order_id" validate:"required,gt=0"`
	Status  string `json:"status" validate:"required"`
}

type NotifyHandlerInterface interface {
	NotifyNewOrder(ctx context.Context, summary broadcaster.OrderSummary) error
	NotifyOrderStatusChange(ctx context.Context, req OrderStatusChangeRequest) error
}

// NotifyHandler publishes changes reported by the ordering backend, either
// over REST or from the order event queue.
type NotifyHandler struct {
	validator          *RequestValidator
	registry           broadcaster.Registry
	orderUpdateHandler OrderUpdateHandlerInterface
}

func NewNotifyHandler(
	validator *RequestValidator,
	registry broadcaster.Registry,
	orderUpdateHandler OrderUpdateHandlerInterface,
) *NotifyHandler {
	return &NotifyHandler{
		validator,
		registry,
		orderUpdateHandler,
	}
}

func (h *NotifyHandler) NotifyNewOrder(ctx context.Context, summary broadcaster.OrderSummary) error {
	err := h.validator.Validate(summary)
	if err != nil {
		return err
	}

	h.registry.SendToAll(broadcaster.RoomAdmin, broadcaster.NewNewOrder(summary))

	return nil
}

// NotifyOrderStatusChange informs the admin dashboard, then runs the regular
// order update fan-out for the customer and restaurants. An order unknown to
// the store only reaches the admins.
func (h *NotifyHandler) NotifyOrderStatusChange(ctx context.Context, req OrderStatusChangeRequest) error {
	err := h.validator.Validate(req)
	if err != nil {
		return err
	}

	h.registry.SendToAll(broadcaster.RoomAdmin, broadcaster.NewOrderStatusChange(req.OrderId, req.Status))

	err = h.orderUpdateHandler.Handle(ctx, OrderUpdateRequest{OrderId: req.OrderId})
	if err != nil && !ierr.Is(err, ierr.ErrorCodeNotFound) {
		return err
	}

	return nil
}
