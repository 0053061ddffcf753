// Package execution routes approved proposals to a paper simulator or a
// live broker, gated by execution mode and deployment environment.
package execution

import (
	"context"
	"errors"
)

// Execution failure taxonomy. Both are recoverable at the request level:
// live orders get one retry, then surface as a FAILED trade.
var (
	ErrExecutionTimeout = errors.New("execution timed out")
	ErrExecutionFailed  = errors.New("execution failed")
)

// Order is what the broker adapter receives for one (child) order.
type Order struct {
	Symbol   string
	Side     string // "BUY" | "SELL"
	Quantity float64
	Price    float64 // reference price; brokers may fill better or worse
}

// Fill is the broker's report for one placed order.
type Fill struct {
	OrderID  string
	Price    float64
	Quantity float64
}

// Broker is the live-trading adapter boundary. Implementations live outside
// this module.
type Broker interface {
	PlaceOrder(ctx context.Context, order Order) (Fill, error)
	CancelOrder(ctx context.Context, orderID string) error
}
