package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/chromedriverd/internal/events"
)

// registerSSERoutes registers the driver lifecycle event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "driver-events-stream",
		Method:      http.MethodGet,
		Path:        "/api/driver/events",
		Summary:     "Driver Event Stream",
		Description: "Real-time stream of driver readiness, failures and state transitions",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"driver-ready":         events.DriverReadyEvent{},
		"driver-error":         events.DriverErrorEvent{},
		"driver-state-changed": events.DriverStateChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.DriverReadyEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DriverErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DriverStateChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// The current state goes first so clients need no separate status call.
		info := s.driver.Info()
		if err := send.Data(events.DriverStateChangedEvent{
			From:      string(info.State),
			To:        string(info.State),
			Timestamp: nowRFC3339(),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
