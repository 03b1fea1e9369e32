// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the nearby sessions and the third-party proxies over
// HTTP. The browser only pushes positions and renders the state it is given;
// credentials never leave the server.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/geolocation"
	"github.com/jcodagnone/nearby/mapview"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/translate"
)

//go:embed templates/*.html
var templates embed.FS

// Config holds what the server needs to build sessions.
type Config struct {
	Addr       string
	Lookup     *places.Lookup
	Translator *translate.Adapter
	Dataset    *dataset.Holder
	Threshold  float64
	// Geolocation are the options of the session watchers.
	Geolocation geolocation.Options
	// MapsJSKey is a browser restricted key for the map tiles. Optional.
	MapsJSKey string
	// SessionTTL is how long a session survives without being polled or fed.
	SessionTTL time.Duration
}

// DefaultSessionTTL is used when Config.SessionTTL is not set.
const DefaultSessionTTL = 10 * time.Minute

type sessionEntry struct {
	session  *mapview.Session
	source   *geolocation.PushSource
	lastSeen time.Time // guarded by Server.mu
}

// Server is the HTTP front of nearby.
type Server struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewServer creates a server.
func NewServer(cfg Config) *Server {
	if cfg.Threshold <= 0 {
		cfg.Threshold = dataset.DefaultThreshold
	}

	if cfg.Geolocation == (geolocation.Options{}) {
		cfg.Geolocation = geolocation.DefaultOptions()
	}

	if cfg.Translator == nil {
		cfg.Translator = translate.NewAdapter(nil)
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	return &Server{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templates, "templates/*.html")))

	r.GET("/", s.mapView)
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.POST("/sessions", s.createSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/sessions/:id/position", s.pushPosition)
	api.POST("/sessions/:id/position/error", s.pushPositionError)
	api.GET("/sessions/:id/state", s.getState)
	api.PUT("/sessions/:id/selection/*marker", s.selectMarker)
	api.DELETE("/sessions/:id/selection", s.clearSelection)
	api.GET("/places", s.searchPlaces)
	api.GET("/dataset/nearby", s.nearbyDataset)
	api.POST("/translate", s.translateText)
	api.GET("/directions", s.directions)

	return r
}

// Run serves until ctx is done, then shuts down and closes every session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go s.reapLoop(ctx)

	go func() {
		log.Printf("🌐 Listening on http://%s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.Close()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// reapLoop closes idle sessions until ctx is done.
func (s *Server) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(max(s.cfg.SessionTTL/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.reap(); n > 0 {
				log.Printf("Closed %d idle sessions", n)
			}
		}
	}
}

// reap closes the sessions not seen for longer than the TTL.
func (s *Server) reap() int {
	deadline := s.now().Add(-s.cfg.SessionTTL)

	s.mu.Lock()

	var idle []*sessionEntry

	for id, e := range s.sessions {
		if e.lastSeen.Before(deadline) {
			idle = append(idle, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range idle {
		e.session.Close()
	}

	return len(idle)
}

// Close stops every session.
func (s *Server) Close() {
	s.mu.Lock()
	entries := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.session.Close()
	}
}

func (s *Server) mapView(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "map.html", gin.H{
		"MapsJSKey": s.cfg.MapsJSKey,
		"Center":    mapview.DefaultCenter,
		"Zoom":      mapview.DefaultZoom,
	})
}

func (s *Server) healthz(ctx *gin.Context) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()

	resp := gin.H{"status": "ok", "sessions": n}

	if s.cfg.Dataset != nil {
		if ds, ok := s.cfg.Dataset.Get(); ok {
			resp["dataset_entries"] = ds.Len()
		} else if err := s.cfg.Dataset.Err(); err != nil {
			resp["dataset_error"] = err.Error()
		}
	}

	ctx.JSON(http.StatusOK, resp)
}
