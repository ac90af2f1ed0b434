package exchange

import "context"

// Paper is the deterministic simulation adapter: every order fills
// instantly at a configured reference price. Fee/slippage/profit are
// computed by the executor from config, not the adapter, since the spec
// assigns that computation to the executor for the paper path specifically.
type Paper struct {
	ReferencePrice float64
}

func NewPaper(referencePrice float64) *Paper {
	return &Paper{ReferencePrice: referencePrice}
}

func (p *Paper) PlaceOrder(ctx context.Context, req Request) (Result, error) {
	return Result{
		Filled: true,
		Price:  p.ReferencePrice,
		Raw:    map[string]interface{}{"adapter": "paper"},
	}, nil
}
