package api

import (
	"time"

	"github.com/labstack/echo/v4"

	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/internal/services/analytics"
	"StreamPulse/internal/usecase"
	xhttp "StreamPulse/pkg/http"
)

// StatusHandler exposes the operational surface: liveness, adapter state
// and the recent anomaly buffer.
type StatusHandler struct {
	chat      *usecase.ChatAdapter
	market    *usecase.MarketAdapter
	proc      *usecase.EventProcessor
	store     drepo.EventStore
	chatDet   *analytics.ChatAnomalyDetector
	marketDet *analytics.MarketAnomalyDetector
	started   time.Time
}

func NewStatusHandler(
	chat *usecase.ChatAdapter,
	market *usecase.MarketAdapter,
	proc *usecase.EventProcessor,
	store drepo.EventStore,
	chatDet *analytics.ChatAnomalyDetector,
	marketDet *analytics.MarketAnomalyDetector,
) *StatusHandler {
	return &StatusHandler{
		chat:      chat,
		market:    market,
		proc:      proc,
		store:     store,
		chatDet:   chatDet,
		marketDet: marketDet,
		started:   time.Now(),
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/status", h.Status)
	e.GET("/anomalies/recent", h.RecentAnomalies)
}

func (h *StatusHandler) Healthz(c echo.Context) error {
	resp := map[string]interface{}{"status": "ok"}
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			resp["status"] = "degraded"
			resp["storage"] = err.Error()
			return xhttp.DataResponse(c, 503, resp)
		}
		resp["storage"] = "ok"
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *StatusHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"uptime_seconds": time.Since(h.started).Seconds(),
		"adapters": []usecase.AdapterStatus{
			h.chat.Status(),
			h.market.Status(),
		},
		"detectors": map[string]interface{}{
			"chat_tracked_authors": h.chatDet.Authors(),
			"market_window_len":    h.marketDet.WindowLen(),
		},
	})
}

type recentAnomaliesRequest struct {
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=256"`
	Source string `query:"source" validate:"omitempty,oneof=chat market"`
}

func (h *StatusHandler) RecentAnomalies(c echo.Context) error {
	req := new(recentAnomaliesRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	events := h.proc.Recent(req.Limit, req.Source)

	// optional lower bound on ingestion time
	if since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{}); !since.IsZero() {
		cutoff := float64(since.UnixNano()) / 1e9
		filtered := events[:0]
		for _, ev := range events {
			if ev.Timestamp >= cutoff {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	return xhttp.ListResponse(c, events, int64(len(events)))
}
