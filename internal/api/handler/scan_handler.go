package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/abhichhetri09/ravintola/internal/api/metrics"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
	"github.com/abhichhetri09/ravintola/internal/scanner"
)

const (
	sourceHTTP   = "http"
	sourceStream = "stream"

	streamReadLimit = 8 << 10
)

// ScanHandler is the admin scanning surface. Routes must be mounted behind
// Auth and RBAC(admin).
type ScanHandler struct {
	redemption     ports.RedemptionService
	scanOpts       scanner.Options
	originPatterns []string
	log            zerolog.Logger
}

func NewScanHandler(redemption ports.RedemptionService, scanOpts scanner.Options, originPatterns []string, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		redemption:     redemption,
		scanOpts:       scanOpts,
		originPatterns: originPatterns,
		log:            log,
	}
}

// Scan redeems a single scanned payload. Decode and validation outcomes are
// reported with 200 and a status; only store failures return 503.
//
// @Summary      Scan a voucher
// @Tags         scans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      scanRequest  true  "Scanned payload"
// @Success      200   {object}  scanResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      503   {object}  scanResponse
// @Router       /v1/scans [post]
func (h *ScanHandler) Scan(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	started := time.Now()
	res, err := h.redemption.Scan(c.Request().Context(), ports.ScanInput{
		Payload:        req.Payload,
		RestaurantName: req.RestaurantName,
		ScannedBy:      claims.UID,
	})
	if err != nil {
		h.log.Error().Err(err).Str("scanned_by", claims.UID).Msg("scan failed")
		failed := failedScan()
		metrics.ObserveScan(string(failed.Status), sourceHTTP, time.Since(started), false)
		return c.JSON(http.StatusServiceUnavailable, failed)
	}

	metrics.ObserveScan(string(res.Status), sourceHTTP, time.Since(started), res.FreeMealEarned)
	return c.JSON(http.StatusOK, toScanResponse(res))
}

// Stream upgrades to a websocket fed by a continuous scanner. Text frames
// are payloads unless they parse as {"command":"pause"|"resume"}; results
// and state changes are pushed back as JSON.
//
// @Summary      Scanner stream
// @Tags         scans
// @Security     BearerAuth
// @Param        restaurant_name  query  string  false  "Restaurant label for transactions"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/scans/stream [get]
func (h *ScanHandler) Stream(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	restaurant := c.QueryParam("restaurant_name")

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	conn.SetReadLimit(streamReadLimit)

	metrics.ScanStreamsActive.Inc()
	defer metrics.ScanStreamsActive.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	log := h.log.With().Str("scanned_by", claims.UID).Logger()
	sc := scanner.New(func(ctx context.Context, payload string) (*ports.ScanResult, error) {
		return h.redemption.Scan(ctx, ports.ScanInput{
			Payload:        payload,
			RestaurantName: restaurant,
			ScannedBy:      claims.UID,
		})
	}, h.scanOpts, log)

	go sc.Run(ctx)

	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		h.pushResults(ctx, conn, sc)
	}()

	log.Info().Msg("scanner stream opened")
	err = h.readFrames(ctx, conn, sc)

	// Let queued scans finish before closing.
	sc.Close()
	<-pushed

	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("scanner stream read failed")
	}
	log.Info().Msg("scanner stream closed")
	_ = conn.Close(websocket.StatusNormalClosure, "")
	return nil
}

func (h *ScanHandler) readFrames(ctx context.Context, conn *websocket.Conn, sc *scanner.Scanner) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		if cmd, ok := parseCommand(data); ok {
			switch cmd {
			case "pause":
				sc.Pause()
			case "resume":
				sc.Resume()
			}
			if err := wsjson.Write(ctx, conn, streamEvent{Type: "state", Paused: sc.Paused()}); err != nil {
				return err
			}
			continue
		}

		sc.Submit(string(data))
	}
}

func (h *ScanHandler) pushResults(ctx context.Context, conn *websocket.Conn, sc *scanner.Scanner) {
	for r := range sc.Results() {
		resp := failedScan()
		if r.Err == nil && r.Scan != nil {
			resp = toScanResponse(r.Scan)
		}
		metrics.ObserveScan(string(resp.Status), sourceStream, r.Took, resp.FreeMealEarned)

		if err := wsjson.Write(ctx, conn, streamEvent{Type: "result", Result: &resp, Paused: sc.Paused()}); err != nil {
			h.log.Debug().Err(err).Msg("dropping scan result for closed stream")
		}
	}
}

func parseCommand(data []byte) (string, bool) {
	var cmd streamCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return "", false
	}
	switch cmd.Command {
	case "pause", "resume":
		return cmd.Command, true
	}
	return "", false
}
