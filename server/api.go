// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
)

func parsePoint(ctx *gin.Context) (spatial.Point, error) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid lat parameter: %w", err)
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid lng parameter: %w", err)
	}

	p := spatial.Point{Lat: lat, Lng: lng}

	return p, p.Validate()
}

func lookupStatus(err error) int {
	switch {
	case places.IsRateLimitError(err), places.IsQuotaExceededError(err):
		return http.StatusTooManyRequests
	case places.IsTimeoutError(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) searchPlaces(ctx *gin.Context) {
	if s.cfg.Lookup == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "places lookup is not configured"})

		return
	}

	p, err := parsePoint(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	category := ctx.Query("type")
	if category == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "type query parameter is required"})

		return
	}

	results, err := s.cfg.Lookup.Search(ctx.Request.Context(), p, category)
	if err != nil {
		var statusErr *places.StatusError
		if errors.As(err, &statusErr) {
			ctx.JSON(http.StatusOK, gin.H{"status": statusErr.Status, "results": []places.Result{}})

			return
		}

		ctx.JSON(lookupStatus(err), gin.H{"error": err.Error()})

		return
	}

	if target := ctx.Query("translate"); target != "" {
		results = s.cfg.Translator.Results(ctx.Request.Context(), results, target)
	}

	ctx.JSON(http.StatusOK, gin.H{"status": places.StatusOK, "results": results})
}

func (s *Server) nearbyDataset(ctx *gin.Context) {
	p, err := parsePoint(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	threshold := s.cfg.Threshold

	if v := ctx.Query("threshold"); v != "" {
		threshold, err = strconv.ParseFloat(v, 64)
		if err != nil || threshold <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold parameter"})

			return
		}
	}

	if s.cfg.Dataset == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "no dataset configured"})

		return
	}

	ds, ok := s.cfg.Dataset.Get()
	if !ok {
		resp := gin.H{"error": "dataset not loaded"}
		if err := s.cfg.Dataset.Err(); err != nil {
			resp["details"] = err.Error()
		}

		ctx.JSON(http.StatusServiceUnavailable, resp)

		return
	}

	entries := dataset.Filter(ds.Entries, p, threshold)

	ctx.JSON(http.StatusOK, gin.H{
		"threshold": threshold,
		"count":     len(entries),
		"entries":   entries,
	})
}

type translateRequest struct {
	Text   string `json:"text" binding:"required"`
	Target string `json:"target" binding:"required"`
}

func (s *Server) translateText(ctx *gin.Context) {
	var req translateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"translatedText": s.cfg.Translator.Translate(ctx.Request.Context(), req.Text, req.Target),
	})
}

func (s *Server) directions(ctx *gin.Context) {
	ctx.JSON(http.StatusNotImplemented, gin.H{"error": "directions are not implemented"})
}
