package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradefleet/core/internal/model"
)

// errTransport marks a dispatch failure that never reached the target
// (dial/timeout/DNS), distinct from the target answering with a non-2xx —
// the two map to result="error" and result="fail" respectively in Handle.
var errTransport = errors.New("transport error")

// WebhookTarget posts an event as a ticket/knowledge-base entry to a
// configured webhook URL, the same resty-with-timeout shape the notifier
// uses for its severity sinks.
func WebhookTarget(name, url string) Target {
	client := resty.New().SetTimeout(5 * time.Second).SetHeader("Content-Type", "application/json")
	return Target{
		Name: name,
		Call: func(ctx context.Context, event model.Event) error {
			if url == "" {
				return nil
			}
			resp, err := client.R().SetContext(ctx).SetBody(event).Post(url)
			if err != nil {
				return fmt.Errorf("%w: integrations(%s): %w", errTransport, name, err)
			}
			if resp.IsError() {
				return fmt.Errorf("integrations(%s): webhook returned %d", name, resp.StatusCode())
			}
			return nil
		},
	}
}
