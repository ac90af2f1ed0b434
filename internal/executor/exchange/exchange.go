// Package exchange defines the externalized order-placement boundary (spec
// §6): placeOrder({orderId, symbol, side, qty}) → {filled, price?, fee?,
// profit?, raw?}. Concept grounded on the teacher's pkg/exchanges/common
// Gateway interface, narrowed to the single operation the spec names and
// freed from the teacher's multi-exchange position/balance bookkeeping
// (reconciliation is explicitly out of scope for the core).
package exchange

import "context"

// Request carries the fields the spec names for a placeOrder call.
type Request struct {
	OrderID string
	Symbol  string
	Side    string
	Qty     float64
}

// Result is the adapter's verdict. Price/Fee/Profit are populated directly
// by live adapters; the paper adapter's caller (the executor) computes them
// from configured fee/slippage/profit constants instead.
type Result struct {
	Filled bool
	Price  float64
	Fee    float64
	Profit float64
	Raw    map[string]interface{}
}

// Adapter places an order against a concrete venue (or a deterministic
// simulation of one).
type Adapter interface {
	PlaceOrder(ctx context.Context, req Request) (Result, error)
}
