package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/market"
)

// pathSymbol translates the URL-safe form ("EUR-USD") back to the
// slash convention used internally.
func pathSymbol(c *gin.Context) string {
	return strings.ReplaceAll(c.Param("symbol"), "-", "/")
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{
		"status":      "ok",
		"time":        time.Now().UTC(),
		"instruments": s.engine.TrackedInstruments(),
		"ws_clients":  s.hub.ClientCount(),
	}
	if s.repo != nil {
		if err := s.repo.HealthCheck(c.Request.Context()); err != nil {
			status["database"] = "down"
		} else {
			status["database"] = "ok"
		}
	}
	if s.cache != nil {
		if s.cache.IsHealthy() {
			status["redis"] = "ok"
		} else {
			status["redis"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, status)
}

type ingestRequest struct {
	Timeframe string       `json:"timeframe" binding:"required"`
	Bars      []market.Bar `json:"bars" binding:"required"`
}

// handleIngestBars feeds bars into the engine. Out-of-order bars are
// reported per bar; the rest of the batch still ingests.
func (s *Server) handleIngestBars(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := pathSymbol(c)
	ingested := 0
	var dropped []int64
	for _, bar := range req.Bars {
		if err := s.engine.IngestBar(symbol, req.Timeframe, bar); err != nil {
			if errors.Is(err, market.ErrOutOfOrderBar) {
				dropped = append(dropped, bar.Timestamp)
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ingested++
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"timeframe": req.Timeframe,
		"ingested":  ingested,
		"dropped":   dropped,
	})
}

// handleEvaluate runs one evaluation cycle and returns the signal, or
// 204 when the gate or cooldown produced nothing.
func (s *Server) handleEvaluate(c *gin.Context) {
	symbol := pathSymbol(c)
	timeframe := c.DefaultQuery("timeframe", "1h")

	sig, err := s.engine.Evaluate(symbol, timeframe)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sig == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, sig)
}

// handleStructures returns the active pivots, bias and order blocks.
func (s *Server) handleStructures(c *gin.Context) {
	symbol := pathSymbol(c)
	timeframe := c.DefaultQuery("timeframe", "1h")

	snap, ok := s.engine.ActiveStructures(symbol, timeframe)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instrument not tracked"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// handleRecentSignals serves the signal feed: the persisted store when
// available, otherwise the bounded Redis feed.
func (s *Server) handleRecentSignals(c *gin.Context) {
	instrument := c.Query("instrument")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if s.repo != nil {
		records, err := s.repo.RecentSignals(c.Request.Context(), instrument, limit)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"signals": records, "count": len(records), "source": "database"})
			return
		}
		s.log.Error("signal feed query failed", "error", err)
	}

	// The Redis feed holds every instrument interleaved and cannot
	// filter, so filtered queries require the database.
	if s.cache != nil && s.cache.IsHealthy() && instrument == "" {
		payloads, err := s.cache.SignalFeed(c.Request.Context(), limit)
		if err == nil {
			signals := make([]json.RawMessage, len(payloads))
			for i, p := range payloads {
				signals[i] = json.RawMessage(p)
			}
			c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals), "source": "cache"})
			return
		}
		s.log.Error("signal feed cache read failed", "error", err)
	}

	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal feed unavailable"})
}

// handleLatestSignal serves the cached newest signal for an instrument.
func (s *Server) handleLatestSignal(c *gin.Context) {
	if s.cache == nil || !s.cache.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal cache unavailable"})
		return
	}

	symbol := pathSymbol(c)
	timeframe := c.DefaultQuery("timeframe", "1h")

	var sig engine.Signal
	if !s.cache.GetLatestSignal(c.Request.Context(), symbol, timeframe, &sig) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached signal"})
		return
	}
	c.JSON(http.StatusOK, sig)
}
