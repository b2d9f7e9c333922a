package broadcaster

import "time"

const (
	RoomOrders      = "orders"
	RoomDrivers     = "drivers"
	RoomRestaurants = "restaurants"
	RoomAdmin       = "admin"
)

var Rooms = []string{RoomOrders, RoomDrivers, RoomRestaurants, RoomAdmin}

const (
	TypeOrderStatusUpdate     = "order_status_update"
	TypeOrderUpdate           = "order_update"
	TypeDriverLocationUpdate  = "driver_location_update"
	TypeSubscriptionConfirmed = "subscription_confirmed"
	TypeNewOrder              = "new_order"
	TypeOrderStatusChange     = "order_status_change"
	TypeHeartbeat             = "heartbeat"
	TypeError                 = "error"
)

// Message is an outbound notification. Implementations are plain structs
// whose JSON encoding is the wire frame.
type Message interface {
	MessageType() string
}

type OrderStatusUpdate struct {
	Type    string `json:"type"`
	OrderId int64  `json:"order_id"`
	Status  string `json:"status"`
}

func NewOrderStatusUpdate(orderId int64, status string) OrderStatusUpdate {
	return OrderStatusUpdate{Type: TypeOrderStatusUpdate, OrderId: orderId, Status: status}
}

func (m OrderStatusUpdate) MessageType() string { return m.Type }

type OrderUpdate struct {
	Type         string `json:"type"`
	OrderId      int64  `json:"order_id"`
	Status       string `json:"status"`
	RestaurantId int64  `json:"restaurant_id"`
}

func NewOrderUpdate(orderId int64, status string, restaurantId int64) OrderUpdate {
	return OrderUpdate{Type: TypeOrderUpdate, OrderId: orderId, Status: status, RestaurantId: restaurantId}
}

func (m OrderUpdate) MessageType() string { return m.Type }

type DriverLocationUpdate struct {
	Type      string  `json:"type"`
	DriverId  int64   `json:"driver_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewDriverLocationUpdate(driverId int64, latitude, longitude float64) DriverLocationUpdate {
	return DriverLocationUpdate{Type: TypeDriverLocationUpdate, DriverId: driverId, Latitude: latitude, Longitude: longitude}
}

func (m DriverLocationUpdate) MessageType() string { return m.Type }

type SubscriptionConfirmed struct {
	Type    string `json:"type"`
	OrderId int64  `json:"order_id"`
}

func NewSubscriptionConfirmed(orderId int64) SubscriptionConfirmed {
	return SubscriptionConfirmed{Type: TypeSubscriptionConfirmed, OrderId: orderId}
}

func (m SubscriptionConfirmed) MessageType() string { return m.Type }

type OrderSummary struct {
	OrderId      int64      `json:"order_id" validate:"required,gt=0"`
	CustomerId   int64      `json:"customer_id" validate:"required,gt=0"`
	RestaurantId int64      `json:"restaurant_id" validate:"required,gt=0"`
	Status       string     `json:"status" validate:"required"`
	OrderType    string     `json:"order_type,omitempty"`
	TotalAmount  float64    `json:"total_amount"`
	CreateTime   *time.Time `json:"created_at,omitempty"`
}

type NewOrder struct {
	Type string       `json:"type"`
	Data OrderSummary `json:"data"`
}

func NewNewOrder(summary OrderSummary) NewOrder {
	return NewOrder{Type: TypeNewOrder, Data: summary}
}

func (m NewOrder) MessageType() string { return m.Type }

type OrderStatusChangeData struct {
	OrderId int64  `json:"order_id"`
	Status  string `json:"status"`
}

type OrderStatusChange struct {
	Type string                `json:"type"`
	Data OrderStatusChangeData `json:"data"`
}

func NewOrderStatusChange(orderId int64, status string) OrderStatusChange {
	return OrderStatusChange{
		Type: TypeOrderStatusChange,
		Data: OrderStatusChangeData{OrderId: orderId, Status: status},
	}
}

func (m OrderStatusChange) MessageType() string { return m.Type }

type Heartbeat struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHeartbeat(timestamp time.Time) Heartbeat {
	return Heartbeat{Type: TypeHeartbeat, Timestamp: timestamp}
}

func (m Heartbeat) MessageType() string { return m.Type }

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code string, message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Code: code, Message: message}
}

func (m ErrorFrame) MessageType() string { return m.Type }
