package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goevery/notifier/internal/auth"
	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sessionContext(t *testing.T, room string, identity auth.Identity) (context.Context, *broadcaster.Session) {
	t.Helper()

	session := broadcaster.NewSession(room, 8)
	require.True(t, session.BeginAuthentication())
	require.True(t, session.Activate(identity))

	return broadcaster.WithSession(context.Background(), session), session
}

func ptr[T any](v T) *T {
	return &v
}

func TestOrderUpdateHandler(t *testing.T) {
	order := store.Order{Id: 42, CustomerId: 7, RestaurantId: 3, Status: "preparing"}

	t.Run("notifies the customer and the restaurants", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(order, nil).Once()
		registry.On("SendToIdentity", broadcaster.RoomOrders, int64(7),
			broadcaster.NewOrderStatusUpdate(42, "preparing")).Return().Once()
		registry.On("SendToAll", broadcaster.RoomRestaurants,
			broadcaster.NewOrderUpdate(42, "preparing", 3)).Return().Once()

		ctx, _ := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 1, Role: auth.RoleStaff})
		err := h.Handle(ctx, OrderUpdateRequest{OrderId: 42})

		assert.NoError(t, err)
	})

	t.Run("missing order is a no-op", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupOrder", mock.Anything, int64(43)).Return(store.Order{}, store.ErrNotFound).Once()

		err := h.Handle(context.Background(), OrderUpdateRequest{OrderId: 43})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeNotFound, ierr.CodeOf(err))
	})

	t.Run("missing order id is rejected", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)

		err := h.Handle(context.Background(), OrderUpdateRequest{})

		assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(store.Order{}, errors.New("connection reset")).Once()

		err := h.Handle(context.Background(), OrderUpdateRequest{OrderId: 42})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeInternal, ierr.CodeOf(err))
	})
}

func TestOrderUpdateHandler_Deliveries(t *testing.T) {
	registry := broadcaster.NewInMemoryRegistry(zap.NewNop())
	engine := store.NewMockEngine(t)
	h := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)

	engine.On("LookupOrder", mock.Anything, int64(42)).
		Return(store.Order{Id: 42, CustomerId: 7, RestaurantId: 3, Status: "preparing"}, nil).Once()

	_, customer := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 7, Role: auth.RoleCustomer})
	_, otherCustomer := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 8, Role: auth.RoleCustomer})
	_, kitchen := sessionContext(t, broadcaster.RoomRestaurants, auth.Identity{Id: 20, Role: auth.RoleStaff})
	_, frontDesk := sessionContext(t, broadcaster.RoomRestaurants, auth.Identity{Id: 21, Role: auth.RoleStaff})
	require.NoError(t, registry.Admit(broadcaster.RoomOrders, customer))
	require.NoError(t, registry.Admit(broadcaster.RoomOrders, otherCustomer))
	require.NoError(t, registry.Admit(broadcaster.RoomRestaurants, kitchen))
	require.NoError(t, registry.Admit(broadcaster.RoomRestaurants, frontDesk))

	err := h.Handle(context.Background(), OrderUpdateRequest{OrderId: 42})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"order_status_update","order_id":42,"status":"preparing"}`, string(<-customer.Outbound()))
	assert.JSONEq(t, `{"type":"order_update","order_id":42,"status":"preparing","restaurant_id":3}`, string(<-kitchen.Outbound()))
	assert.JSONEq(t, `{"type":"order_update","order_id":42,"status":"preparing","restaurant_id":3}`, string(<-frontDesk.Outbound()))
	assert.Empty(t, otherCustomer.Outbound())
}

func TestDriverLocationHandler(t *testing.T) {
	t.Run("persists and relays to admins", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewDriverLocationHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupDriverByUser", mock.Anything, int64(11)).
			Return(store.Driver{Id: 5, UserId: 11, IsAvailable: true}, nil).Once()
		engine.On("PersistDriverLocation", mock.Anything, int64(5), 12.9, 77.6).Return(nil).Once()
		registry.On("SendToAll", broadcaster.RoomAdmin,
			broadcaster.NewDriverLocationUpdate(5, 12.9, 77.6)).Return().Once()

		ctx, _ := sessionContext(t, broadcaster.RoomDrivers, auth.Identity{Id: 11, Role: auth.RoleDriver})
		err := h.Handle(ctx, DriverLocationRequest{Latitude: ptr(12.9), Longitude: ptr(77.6)})

		assert.NoError(t, err)
	})

	t.Run("caller without driver profile causes no persistence and no delivery", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewDriverLocationHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupDriverByUser", mock.Anything, int64(7)).Return(store.Driver{}, store.ErrNotFound).Once()

		ctx, _ := sessionContext(t, broadcaster.RoomDrivers, auth.Identity{Id: 7, Role: auth.RoleCustomer})
		err := h.Handle(ctx, DriverLocationRequest{Latitude: ptr(12.9), Longitude: ptr(77.6)})

		assert.Equal(t, ierr.ErrorCodeNotFound, ierr.CodeOf(err))
		engine.AssertNotCalled(t, "PersistDriverLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("persistence failure skips the broadcast", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewDriverLocationHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupDriverByUser", mock.Anything, int64(11)).Return(store.Driver{Id: 5, UserId: 11}, nil).Once()
		engine.On("PersistDriverLocation", mock.Anything, int64(5), 0.0, 0.0).Return(errors.New("deadlock")).Once()

		ctx, _ := sessionContext(t, broadcaster.RoomDrivers, auth.Identity{Id: 11, Role: auth.RoleDriver})
		err := h.Handle(ctx, DriverLocationRequest{Latitude: ptr(0.0), Longitude: ptr(0.0)})

		assert.Error(t, err)
	})

	t.Run("driver removed before persisting", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewDriverLocationHandler(NewRequestValidator(), engine, registry)

		engine.On("LookupDriverByUser", mock.Anything, int64(11)).Return(store.Driver{Id: 5, UserId: 11}, nil).Once()
		engine.On("PersistDriverLocation", mock.Anything, int64(5), 12.9, 77.6).Return(store.ErrNotFound).Once()

		ctx, _ := sessionContext(t, broadcaster.RoomDrivers, auth.Identity{Id: 11, Role: auth.RoleDriver})
		err := h.Handle(ctx, DriverLocationRequest{Latitude: ptr(12.9), Longitude: ptr(77.6)})

		assert.Equal(t, ierr.ErrorCodeNotFound, ierr.CodeOf(err))
	})

	t.Run("coordinates are required and bounded", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewDriverLocationHandler(NewRequestValidator(), engine, registry)
		ctx, _ := sessionContext(t, broadcaster.RoomDrivers, auth.Identity{Id: 11, Role: auth.RoleDriver})

		err := h.Handle(ctx, DriverLocationRequest{Latitude: ptr(12.9)})
		assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))

		err = h.Handle(ctx, DriverLocationRequest{Latitude: ptr(120.0), Longitude: ptr(77.6)})
		assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
	})
}

func TestSubscribeOrderHandler(t *testing.T) {
	order := store.Order{Id: 42, CustomerId: 7, RestaurantId: 3, Status: "pending"}

	t.Run("owner receives a personal confirmation", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewSubscribeOrderHandler(NewRequestValidator(), engine, registry)
		ctx, session := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 7, Role: auth.RoleCustomer})

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(order, nil).Once()
		registry.On("SendToSession", session, broadcaster.NewSubscriptionConfirmed(42)).Return().Once()

		err := h.Handle(ctx, SubscribeOrderRequest{OrderId: 42})

		assert.NoError(t, err)
	})

	t.Run("staff may subscribe to any order", func(t *testing.T) {
		for _, role := range []auth.Role{auth.RoleStaff, auth.RoleAdmin} {
			engine := store.NewMockEngine(t)
			registry := broadcaster.NewMockRegistry(t)
			h := NewSubscribeOrderHandler(NewRequestValidator(), engine, registry)
			ctx, session := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 100, Role: role})

			engine.On("LookupOrder", mock.Anything, int64(42)).Return(order, nil).Once()
			registry.On("SendToSession", session, broadcaster.NewSubscriptionConfirmed(42)).Return().Once()

			assert.NoError(t, h.Handle(ctx, SubscribeOrderRequest{OrderId: 42}))
		}
	})

	t.Run("other customers get nothing", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewSubscribeOrderHandler(NewRequestValidator(), engine, registry)
		ctx, _ := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 8, Role: auth.RoleCustomer})

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(order, nil).Once()

		err := h.Handle(ctx, SubscribeOrderRequest{OrderId: 42})

		assert.Equal(t, ierr.ErrorCodePermissionDenied, ierr.CodeOf(err))
	})

	t.Run("drivers are not staff", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewSubscribeOrderHandler(NewRequestValidator(), engine, registry)
		ctx, _ := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 11, Role: auth.RoleDriver})

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(order, nil).Once()

		err := h.Handle(ctx, SubscribeOrderRequest{OrderId: 42})

		assert.Equal(t, ierr.ErrorCodePermissionDenied, ierr.CodeOf(err))
	})

	t.Run("missing order", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		h := NewSubscribeOrderHandler(NewRequestValidator(), engine, registry)
		ctx, _ := sessionContext(t, broadcaster.RoomOrders, auth.Identity{Id: 7, Role: auth.RoleCustomer})

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(store.Order{}, store.ErrNotFound).Once()

		err := h.Handle(ctx, SubscribeOrderRequest{OrderId: 42})

		assert.Equal(t, ierr.ErrorCodeNotFound, ierr.CodeOf(err))
	})
}

func TestHeartbeatHandler(t *testing.T) {
	registry := broadcaster.NewMockRegistry(t)
	h := NewHeartbeatHandler(registry)
	ctx, session := sessionContext(t, broadcaster.RoomAdmin, auth.Identity{Id: 1, Role: auth.RoleAdmin})

	registry.On("SendToSession", session, mock.MatchedBy(func(m broadcaster.Heartbeat) bool {
		return m.Type == "heartbeat" && time.Since(m.Timestamp) < time.Minute
	})).Return().Once()

	assert.NoError(t, h.Handle(ctx))
	assert.Error(t, h.Handle(context.Background()))
}

func TestNotifyHandler(t *testing.T) {
	t.Run("new order goes to admins", func(t *testing.T) {
		registry := broadcaster.NewMockRegistry(t)
		orderUpdate := NewOrderUpdateHandler(NewRequestValidator(), store.NewMockEngine(t), registry)
		h := NewNotifyHandler(NewRequestValidator(), registry, orderUpdate)

		summary := broadcaster.OrderSummary{OrderId: 42, CustomerId: 7, RestaurantId: 3, Status: "pending", TotalAmount: 23.5}
		registry.On("SendToAll", broadcaster.RoomAdmin, broadcaster.NewNewOrder(summary)).Return().Once()

		assert.NoError(t, h.NotifyNewOrder(context.Background(), summary))
	})

	t.Run("incomplete order summary is rejected", func(t *testing.T) {
		registry := broadcaster.NewMockRegistry(t)
		orderUpdate := NewOrderUpdateHandler(NewRequestValidator(), store.NewMockEngine(t), registry)
		h := NewNotifyHandler(NewRequestValidator(), registry, orderUpdate)

		err := h.NotifyNewOrder(context.Background(), broadcaster.OrderSummary{OrderId: 42})

		assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
	})

	t.Run("status change reaches admins, customer and restaurants", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		orderUpdate := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)
		h := NewNotifyHandler(NewRequestValidator(), registry, orderUpdate)

		engine.On("LookupOrder", mock.Anything, int64(42)).
			Return(store.Order{Id: 42, CustomerId: 7, RestaurantId: 3, Status: "ready"}, nil).Once()
		registry.On("SendToAll", broadcaster.RoomAdmin, broadcaster.NewOrderStatusChange(42, "ready")).Return().Once()
		registry.On("SendToIdentity", broadcaster.RoomOrders, int64(7), broadcaster.NewOrderStatusUpdate(42, "ready")).Return().Once()
		registry.On("SendToAll", broadcaster.RoomRestaurants, broadcaster.NewOrderUpdate(42, "ready", 3)).Return().Once()

		err := h.NotifyOrderStatusChange(context.Background(), OrderStatusChangeRequest{OrderId: 42, Status: "ready"})

		assert.NoError(t, err)
	})

	t.Run("status change for an unknown order only reaches admins", func(t *testing.T) {
		engine := store.NewMockEngine(t)
		registry := broadcaster.NewMockRegistry(t)
		orderUpdate := NewOrderUpdateHandler(NewRequestValidator(), engine, registry)
		h := NewNotifyHandler(NewRequestValidator(), registry, orderUpdate)

		engine.On("LookupOrder", mock.Anything, int64(42)).Return(store.Order{}, store.ErrNotFound).Once()
		registry.On("SendToAll", broadcaster.RoomAdmin, broadcaster.NewOrderStatusChange(42, "ready")).Return().Once()

		err := h.NotifyOrderStatusChange(context.Background(), OrderStatusChangeRequest{OrderId: 42, Status: "ready"})

		assert.NoError(t, err)
	})
}
