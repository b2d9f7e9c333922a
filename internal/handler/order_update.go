package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/store"
)

type OrderUpdateRequest struct {
	OrderId int64 `json:"order_id" validate:"required,gt=0"`
}

type OrderUpdateHandlerInterface interface {
	Handle(ctx context.Context, req OrderUpdateRequest) error
}

// OrderUpdateHandler tells the ordering customer and every restaurant
// member about the current status of an order.
type OrderUpdateHandler struct {
	validator *RequestValidator
	store     store.Engine
	registry  broadcaster.Registry
}

func NewOrderUpdateHandler(
	validator *RequestValidator,
	store store.Engine,
	registry broadcaster.Registry,
) *OrderUpdateHandler {
	return &OrderUpdateHandler{
		validator,
		store,
		registry,
	}
}

func (h *OrderUpdateHandler) Handle(ctx context.Context, req OrderUpdateRequest) error {
	err := h.validator.Validate(req)
	if err != nil {
		return err
	}

	order, err := h.store.LookupOrder(ctx, req.OrderId)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, fmt.Errorf("order %d not found", req.OrderId))
	}
	if err != nil {
		return err
	}

	h.registry.SendToIdentity(broadcaster.RoomOrders, order.CustomerId,
		broadcaster.NewOrderStatusUpdate(order.Id, order.Status))

	h.registry.SendToAll(broadcaster.RoomRestaurants,
		broadcaster.NewOrderUpdate(order.Id, order.Status, order.RestaurantId))

	return nil
}
