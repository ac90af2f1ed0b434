package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Live calls a REST venue (binance/coinbase), grounded on the
// resty-with-retry client shape 0xtitan6-polymarket-mm uses for its CLOB
// client: base URL, bounded retries on 5xx, request timeout.
type Live struct {
	http   *resty.Client
	venue  string
	apiKey string
}

// NewLive builds a Live adapter for venue ("binance"|"coinbase") pointed at
// baseURL. apiKey, when set, is sent as an X-API-Key header on every
// request; apiSecret is accepted but not used, and requests are not signed.
// This module owns transport, retry, and response shape, not
// market-specific cryptography.
func NewLive(venue, baseURL, apiKey, apiSecret string) *Live {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &Live{http: client, venue: venue, apiKey: apiKey}
}

// PlaceOrder submits the order and maps the venue's response into Result.
// Reconciliation and partial fills are out of scope for the core (spec §6).
func (l *Live) PlaceOrder(ctx context.Context, req Request) (Result, error) {
	var body struct {
		Status string  `json:"status"`
		Price  float64 `json:"price"`
		Fee    float64 `json:"fee"`
		Profit float64 `json:"profit"`
	}
	resp, err := l.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"clientOrderId": req.OrderID,
			"symbol":        req.Symbol,
			"side":          req.Side,
			"quantity":      req.Qty,
		}).
		SetResult(&body).
		Post("/orders")
	if err != nil {
		return Result{}, fmt.Errorf("exchange(%s): place order: %w", l.venue, err)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("exchange(%s): order rejected: status %d", l.venue, resp.StatusCode())
	}

	filled := body.Status == "FILLED" || body.Status == "filled"
	return Result{
		Filled: filled,
		Price:  body.Price,
		Fee:    body.Fee,
		Profit: body.Profit,
		Raw:    map[string]interface{}{"adapter": l.venue, "status": body.Status},
	}, nil
}
