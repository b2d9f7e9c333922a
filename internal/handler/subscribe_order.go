package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/store"
)

type SubscribeOrderRequest struct {
	OrderId int64 `json:"order_id" validate:"required,gt=0"`
}

type SubscribeOrderHandlerInterface interface {
	Handle(ctx context.Context, req SubscribeOrderRequest) error
}

type SubscribeOrderHandler struct {
	validator *RequestValidator
	store     store.Engine
	registry  broadcaster.Registry
}

func NewSubscribeOrderHandler(
	validator *RequestValidator,
	store store.Engine,
	registry broadcaster.Registry,
) *SubscribeOrderHandler {
	return &SubscribeOrderHandler{
		validator,
		store,
		registry,
	}
}

// Handle confirms the subscription to the requesting session only. The order
// owner and staff members may subscribe.
func (h *SubscribeOrderHandler) Handle(ctx context.Context, req SubscribeOrderRequest) error {
	err := h.validator.Validate(req)
	if err != nil {
		return err
	}

	session, ok := broadcaster.SessionFromContext(ctx)
	if !ok {
		return errors.New("session not found in context")
	}

	order, err := h.store.LookupOrder(ctx, req.OrderId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, fmt.Errorf("order %d not found", req.OrderId))
	}
	if err != nil {
		return err
	}

	caller := session.Identity()
	if caller.Id != order.CustomerId && !caller.IsStaff() {
		return ierr.New(ierr.ErrorCodePermissionDenied,
			errors.New("user not authorized to subscribe to this order"))
	}

	h.registry.SendToSession(session, broadcaster.NewSubscriptionConfirmed(order.Id))

	return nil
}
