package memory

import (
	"context"
	"sync"

	"github.com/goevery/notifier/internal/store"
)

// Engine keeps orders and drivers in process memory. It backs local runs
// without a database and the end-to-end tests.
type Engine struct {
	mu sync.RWMutex

	orders  map[int64]store.Order
	drivers map[int64]store.Driver
}

func NewEngine() *Engine {
	return &Engine{
		orders:  make(map[int64]store.Order),
		drivers: make(map[int64]store.Driver),
	}
}

func (e *Engine) PutOrder(order store.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orders[order.Id] = order
}

func (e *Engine) PutDriver(driver store.Driver) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.drivers[driver.Id] = driver
}

func (e *Engine) Setup(_ context.Context) error {
	return nil
}

func (e *Engine) LookupOrder(_ context.Context, orderId int64) (store.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.orders[orderId]
	if !ok {
		return store.Order{}, store.ErrNotFound
	}

	return order, nil
}

func (e *Engine) LookupDriverByUser(_ context.Context, userId int64) (store.Driver, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var found *store.Driver
	for _, driver := range e.drivers {
		if driver.UserId != userId {
			continue
		}
		if found == nil || driver.Id < found.Id {
			d := driver
			found = &d
		}
	}

	if found == nil {
		return store.Driver{}, store.ErrNotFound
	}

	return *found, nil
}

func (e *Engine) PersistDriverLocation(_ context.Context, driverId int64, latitude, longitude float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	driver, ok := e.drivers[driverId]
	if !ok {
		return store.ErrNotFound
	}

	driver.CurrentLatitude = &latitude
	driver.CurrentLongitude = &longitude
	e.drivers[driverId] = driver

	return nil
}

func (e *Engine) Close(_ context.Context) error {
	return nil
}
