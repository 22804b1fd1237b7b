package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Fulfilment values the storefront sends. Stored as plain strings; the
// ledger does not interpret them.
const (
	FulfilmentPickup   = "pickup"
	FulfilmentDelivery = "delivery"
)
