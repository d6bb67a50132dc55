package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/chromedriverd/internal/api/models"
	"github.com/smazurov/chromedriverd/internal/driver"
	"github.com/smazurov/chromedriverd/internal/metrics"
	"github.com/smazurov/chromedriverd/internal/proxy"
)

func (s *Server) registerDriverRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-driver",
		Method:      http.MethodGet,
		Path:        "/api/driver",
		Summary:     "Driver Status",
		Description: "Get the supervisor state, the driver process and the readiness session",
		Tags:        []string{"driver"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.DriverResponse, error) {
		return &models.DriverResponse{Body: s.driverData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-driver",
		Method:      http.MethodPost,
		Path:        "/api/driver/start",
		Summary:     "Start Driver",
		Description: "Reap stale drivers, spawn chromedriver and wait for readiness in the background. Progress is reported on /api/driver/events.",
		Tags:        []string{"driver"},
		Security:    withAuth(),
		Errors:      []int{401, 409},
	}, func(ctx context.Context, input *struct {
		Body *models.DriverStartRequestData `required:"false"`
	}) (*models.DriverActionResponse, error) {
		info := s.driver.Info()
		switch {
		case info.State.Starting():
			return nil, huma.Error409Conflict("Driver start already in progress", driver.ErrStartInProgress)
		case info.State == driver.StateReady && info.PID != 0:
			return nil, huma.Error409Conflict("Driver already running", driver.ErrAlreadyRunning)
		}

		caps := s.options.Capabilities
		if input.Body != nil && input.Body.Capabilities != nil {
			caps = input.Body.Capabilities
		}

		// The start outlives the request; its outcome is published as events.
		startCtx := context.WithoutCancel(ctx)
		go func() {
			if err := s.driver.Start(startCtx, caps); err != nil &&
				!errors.Is(err, driver.ErrStartInProgress) && !errors.Is(err, driver.ErrAlreadyRunning) {
				s.logger.Warn("Driver start requested via API failed", "error", err)
			}
		}()

		return &models.DriverActionResponse{
			Status: http.StatusAccepted,
			Body: models.DriverActionData{
				Action:  "start",
				State:   string(s.driver.Info().State),
				Message: "Driver start accepted",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-driver",
		Method:      http.MethodPost,
		Path:        "/api/driver/stop",
		Summary:     "Stop Driver",
		Description: "Terminate the driver process, aborting a start in progress",
		Tags:        []string{"driver"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.DriverActionResponse, error) {
		if err := s.driver.Stop(ctx); err != nil {
			return nil, huma.Error500InternalServerError("Failed to stop driver", err)
		}
		return &models.DriverActionResponse{
			Status: http.StatusOK,
			Body: models.DriverActionData{
				Action:  "stop",
				State:   string(s.driver.Info().State),
				Message: "Driver stopped",
			},
		}, nil
	})
}

func (s *Server) driverData() models.DriverData {
	info := s.driver.Info()
	cfg := s.driver.Config()

	data := models.DriverData{
		State:   string(info.State),
		PID:     info.PID,
		BinPath: info.BinPath,
		Args:    info.Args,
		URL:     proxy.BaseURL(cfg.ProxyHost, cfg.ProxyPort, cfg.URLBase),
		Extra:   info.Extra,
	}
	if !info.StartedAt.IsZero() {
		startedAt := info.StartedAt
		data.StartedAt = &startedAt
	}
	if info.Session != nil {
		data.Session = &models.SessionData{
			ID:           info.Session.ID,
			Capabilities: info.Session.Capabilities,
			Raw:          info.Session.Raw,
			CreatedAt:    info.Session.CreatedAt,
		}
	}
	if info.LastError != nil {
		data.LastError = info.LastError.Error()
	}
	if stats := metrics.GetProcessStats(); stats != nil && info.PID != 0 && stats.PID == info.PID {
		data.Process = &models.ProcessData{
			RSSBytes:   stats.RSSBytes,
			CPUPercent: stats.CPUPercent,
			SampledAt:  stats.SampledAt,
		}
	}
	return data
}
