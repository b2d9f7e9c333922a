package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/notifier/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Order struct {
	Id           int64  `bson:"_id"`
	CustomerId   int64  `bson:"customerId"`
	RestaurantId int64  `bson:"restaurantId"`
	Status       string `bson:"status"`
}

type Driver struct {
	Id               int64    `bson:"_id"`
	UserId           int64    `bson:"userId"`
	CurrentLatitude  *float64 `bson:"currentLatitude,omitempty"`
	CurrentLongitude *float64 `bson:"currentLongitude,omitempty"`
	IsAvailable      bool     `bson:"isAvailable"`
}

type Engine struct {
	client  *mongo.Client
	orders  *mongo.Collection
	drivers *mongo.Collection
}

func Connect(ctx context.Context, uri string, databaseName string) (*Engine, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return NewEngine(client, databaseName), nil
}

func NewEngine(client *mongo.Client, databaseName string) *Engine {
	database := client.Database(databaseName)

	return &Engine{
		client:  client,
		orders:  database.Collection("orders"),
		drivers: database.Collection("drivers"),
	}
}

func (e *Engine) Setup(ctx context.Context) error {
	driverUserIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	orderCustomerIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "customerId", Value: 1},
			{Key: "_id", Value: -1},
		},
	}

	_, err := e.drivers.Indexes().CreateOne(ctx, driverUserIndexModel)
	if err != nil {
		return err
	}

	_, err = e.orders.Indexes().CreateOne(ctx, orderCustomerIndexModel)

	return err
}

func (e *Engine) LookupOrder(ctx context.Context, orderId int64) (store.Order, error) {
	var order Order

	err := e.orders.FindOne(ctx, bson.M{"_id": orderId}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Order{}, store.ErrNotFound
	}
	if err != nil {
		return store.Order{}, err
	}

	return store.Order{
		Id:           order.Id,
		CustomerId:   order.CustomerId,
		RestaurantId: order.RestaurantId,
		Status:       order.Status,
	}, nil
}

func (e *Engine) LookupDriverByUser(ctx context.Context, userId int64) (store.Driver, error) {
	var driver Driver

	err := e.drivers.FindOne(ctx, bson.M{"userId": userId}).Decode(&driver)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Driver{}, store.ErrNotFound
	}
	if err != nil {
		return store.Driver{}, err
	}

	return store.Driver{
		Id:               driver.Id,
		UserId:           driver.UserId,
		CurrentLatitude:  driver.CurrentLatitude,
		CurrentLongitude: driver.CurrentLongitude,
		IsAvailable:      driver.IsAvailable,
	}, nil
}

func (e *Engine) PersistDriverLocation(ctx context.Context, driverId int64, latitude, longitude float64) error {
	result, err := e.drivers.UpdateOne(ctx,
		bson.M{"_id": driverId},
		bson.M{"$set": bson.D{
			{Key: "currentLatitude", Value: latitude},
			{Key: "currentLongitude", Value: longitude},
		}},
	)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (e *Engine) Close(ctx context.Context) error {
	return e.client.Disconnect(ctx)
}
