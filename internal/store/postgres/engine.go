package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goevery/notifier/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Engine reads the ordering backend's relational tables. The schema belongs
// to that backend; Setup only verifies the tables are reachable.
type Engine struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func Connect(ctx context.Context, logger *zap.Logger, databaseURL string) (*Engine, error) {
	start := time.Now()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}

	config.ConnConfig.ConnectTimeout = 5 * time.Second
	if config.ConnConfig.RuntimeParams == nil {
		config.ConnConfig.RuntimeParams = make(map[string]string, 1)
	}
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"
	config.HealthCheckPeriod = 30 * time.Second
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", config.ConnConfig.Host),
		zap.String("database", config.ConnConfig.Database),
		zap.Duration("duration", time.Since(start)))

	return &Engine{
		logger: logger,
		pool:   pool,
	}, nil
}

func (e *Engine) Setup(ctx context.Context) error {
	for _, table := range []string{"orders", "drivers"} {
		var exists bool
		err := e.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}

		if !exists {
			return fmt.Errorf("table %s does not exist", table)
		}
	}

	return nil
}

func (e *Engine) LookupOrder(ctx context.Context, orderId int64) (store.Order, error) {
	var order store.Order

	err := e.pool.QueryRow(ctx, `
		SELECT id, customer_id, restaurant_id, status
		FROM orders
		WHERE id = $1
	`, orderId).Scan(&order.Id, &order.CustomerId, &order.RestaurantId, &order.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Order{}, store.ErrNotFound
	}
	if err != nil {
		return store.Order{}, fmt.Errorf("select order %d: %w", orderId, err)
	}

	return order, nil
}

func (e *Engine) LookupDriverByUser(ctx context.Context, userId int64) (store.Driver, error) {
	var driver store.Driver

	err := e.pool.QueryRow(ctx, `
		SELECT id, user_id, current_latitude, current_longitude, is_available
		FROM drivers
		WHERE user_id = $1
		ORDER BY id
		LIMIT 1
	`, userId).Scan(
		&driver.Id, &driver.UserId,
		&driver.CurrentLatitude, &driver.CurrentLongitude, &driver.IsAvailable,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Driver{}, store.ErrNotFound
	}
	if err != nil {
		return store.Driver{}, fmt.Errorf("select driver for user %d: %w", userId, err)
	}

	return driver, nil
}

func (e *Engine) PersistDriverLocation(ctx context.Context, driverId int64, latitude, longitude float64) error {
	tag, err := e.pool.Exec(ctx, `
		UPDATE drivers
		SET current_latitude = $2, current_longitude = $3
		WHERE id = $1
	`, driverId, latitude, longitude)
	if err != nil {
		return fmt.Errorf("update driver %d location: %w", driverId, err)
	}

	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (e *Engine) Close(_ context.Context) error {
	e.pool.Close()

	return nil
}
