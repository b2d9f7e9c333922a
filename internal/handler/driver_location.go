package handler

import (
	"context"
	"errors"

	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/store"
)

type DriverLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

type DriverLocationHandlerInterface interface {
	Handle(ctx context.Context, req DriverLocationRequest) error
}

type DriverLocationHandler struct {
	validator *RequestValidator
	store     store.Engine
	registry  broadcaster.Registry
}

func NewDriverLocationHandler(
	validator *RequestValidator,
	store store.Engine,
	registry broadcaster.Registry,
) *DriverLocationHandler {
	return &DriverLocationHandler{
		validator,
		store,
		registry,
	}
}

// Handle stores the caller's position on their driver profile and relays it
// to the admin room. Callers without a driver profile are ignored.
func (h *DriverLocationHandler) Handle(ctx context.Context, req DriverLocationRequest) error {
	err := h.validator.Validate(req)
	if err != nil {
		return err
	}

	session, ok := broadcaster.SessionFromContext(ctx)
	if !ok {
		return errors.New("session not found in context")
	}

	driver, err := h.store.LookupDriverByUser(ctx, session.Identity().Id)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("caller has no driver profile"))
	}
	if err != nil {
		return err
	}

	latitude, longitude := *req.Latitude, *req.Longitude

	err = h.store.PersistDriverLocation(ctx, driver.Id, latitude, longitude)
	if errors.Is(err, store.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("driver profile no longer exists"))
	}
	if err != nil {
		return err
	}

	h.registry.SendToAll(broadcaster.RoomAdmin,
		broadcaster.NewDriverLocationUpdate(driver.Id, latitude, longitude))

	return nil
}
