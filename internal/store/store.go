package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

type Order struct {
	Id           int64
	CustomerId   int64
	RestaurantId int64
	Status       string
}

type Driver struct {
	Id               int64
	UserId           int64
	CurrentLatitude  *float64
	CurrentLongitude *float64
	IsAvailable      bool
}

// Engine is the slice of the ordering database the notifier depends on.
// Orders and drivers are owned by the ordering backend; only the driver's
// current position is written here.
type Engine interface {
	Setup(ctx context.Context) error
	LookupOrder(ctx context.Context, orderId int64) (Order, error)
	LookupDriverByUser(ctx context.Context, userId int64) (Driver, error)
	PersistDriverLocation(ctx context.Context, driverId int64, latitude, longitude float64) error
	Close(ctx context.Context) error
}
