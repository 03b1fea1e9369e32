// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jcodagnone/nearby/geolocation"
	"github.com/jcodagnone/nearby/mapview"
	"github.com/jcodagnone/nearby/spatial"
)

type sessionRequest struct {
	Categories []string `json:"categories"`
	Translate  bool     `json:"translate"`
	Target     string   `json:"target"`
}

type positionRequest struct {
	Lat      *float64 `json:"lat" binding:"required"`
	Lng      *float64 `json:"lng" binding:"required"`
	Accuracy float64  `json:"accuracy"`
}

type positionErrorRequest struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) createSession(ctx *gin.Context) {
	var req sessionRequest

	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	}

	variant := mapview.DefaultVariant()
	if len(req.Categories) > 0 {
		variant.Categories = nil

		for _, c := range req.Categories {
			c = strings.TrimSpace(c)
			if c == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "empty category"})

				return
			}

			variant.Categories = append(variant.Categories, c)
		}
	}

	variant.Translate = req.Translate
	if req.Target != "" {
		variant.Target = req.Target
	}

	id := uuid.NewString()
	source := geolocation.NewPushSource()
	session := mapview.NewSession(id, variant, mapview.Config{
		Lookup:     s.cfg.Lookup,
		Translator: s.cfg.Translator,
		Dataset:    s.cfg.Dataset,
		Threshold:  s.cfg.Threshold,
	})

	if err := session.Start(context.Background(), source, s.cfg.Geolocation); err != nil {
		session.Close()
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{session: session, source: source, lastSeen: s.now()}
	s.mu.Unlock()

	log.Printf("Session %s started: categories=%v translate=%t", id, variant.Categories, variant.Translate)

	ctx.JSON(http.StatusCreated, gin.H{"id": id, "variant": variant})
}

// lookupSession answers 404 itself when the session does not exist. Any
// request for a session keeps it alive.
func (s *Server) lookupSession(ctx *gin.Context) (*sessionEntry, bool) {
	id := ctx.Param("id")

	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		e.lastSeen = s.now()
	}
	s.mu.Unlock()

	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "session not found", "id": id})

		return nil, false
	}

	return e, true
}

func (s *Server) deleteSession(ctx *gin.Context) {
	e, ok := s.lookupSession(ctx)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.sessions, ctx.Param("id"))
	s.mu.Unlock()

	e.session.Close()

	ctx.Status(http.StatusNoContent)
}

func (s *Server) pushPosition(ctx *gin.Context) {
	e, ok := s.lookupSession(ctx)
	if !ok {
		return
	}

	var req positionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	p := spatial.Point{Lat: *req.Lat, Lng: *req.Lng}
	if err := p.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	e.source.Push(geolocation.Reading{Point: p, Accuracy: req.Accuracy})

	ctx.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) pushPositionError(ctx *gin.Context) {
	e, ok := s.lookupSession(ctx)
	if !ok {
		return
	}

	var req positionErrorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	e.source.Fail(geolocation.CodeOf(req.Code, req.Message))

	ctx.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) getState(ctx *gin.Context) {
	e, ok := s.lookupSession(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, e.session.State())
}

func (s *Server) selectMarker(ctx *gin.Context) {
	e, ok := s.lookupSession(ctx)
	if !ok {
		return
	}

	// Marker ids may contain slashes (OSM ids).
	marker := strings.TrimPrefix(ctx.Param("marker"), "/")

	if err := e.session.Select(marker); err != nil {
		if errors.Is(err, mapview.ErrUnknownMarker) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, e.session.State())
}

func (s *Server) clearSelection(ctx *gin.Context) {
	e, ok := s.lookupSession(ctx)
	if !ok {
		return
	}

	e.session.ClearSelection()

	ctx.JSON(http.StatusOK, e.session.State())
}
