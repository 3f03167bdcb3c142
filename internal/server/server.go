// Package server exposes the monitor's read API over HTTP. The API is a
// thin view over the store plus the on-demand comparison fan-out; all
// heavy lifting happens in the collector.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/compare"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
)

// Comparer fans a probe out to every registered node.
type Comparer interface {
	CompareAll(ctx context.Context) ([]compare.Result, error)
}

// Server serves the HTTP API.
type Server struct {
	store    *store.Store
	comparer Comparer
	log      *logrus.Entry
	engine   *gin.Engine
	http     *http.Server
}

// New builds the server and registers all routes.
func New(listen string, st *store.Store, comparer Comparer, log *logrus.Entry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		store:    st,
		comparer: comparer,
		log:      log,
		engine:   engine,
		http: &http.Server{
			Addr:         listen,
			Handler:      engine,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/snapshots", s.handleSnapshots)
	api.GET("/alerts", s.handleAlerts)
	api.POST("/alerts/:id/ack", s.handleAcknowledgeAlert)
	api.GET("/thresholds", s.handleThresholds)
	api.PUT("/thresholds", s.handleSaveThreshold)
	api.GET("/channels", s.handleChannels)
	api.PUT("/channels", s.handleSaveChannel)
	api.GET("/nodes", s.handleNodes)
	api.POST("/nodes/:name/activate", s.handleActivateNode)
	api.GET("/compare", s.handleCompare)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	if s.log != nil {
		s.log.WithField("listen", s.http.Addr).Info("http api listening")
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStatus returns the latest snapshot together with the active node.
func (s *Server) handleStatus(c *gin.Context) {
	snap, err := s.store.LatestSnapshot()
	if err != nil {
		s.serverError(c, err)
		return
	}
	node, err := s.store.ActiveNode()
	if err != nil {
		s.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot":    snap,
		"active_node": node,
	})
}

// handleSnapshots returns the snapshot history for the chart views.
// ?hours=N bounds the window; it defaults to 24.
func (s *Server) handleSnapshots(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
			return
		}
		hours = parsed
	}

	snaps, err := s.store.RecentSnapshots(hours)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts, err := s.store.UnacknowledgedAlerts()
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) handleAcknowledgeAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := s.store.AcknowledgeAlert(uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": id})
}

func (s *Server) handleThresholds(c *gin.Context) {
	thresholds, err := s.store.AllThresholds()
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thresholds": thresholds})
}

func (s *Server) handleSaveThreshold(c *gin.Context) {
	var threshold store.AlertThreshold
	if err := c.ShouldBindJSON(&threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold payload"})
		return
	}
	if threshold.MetricKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric_key is required"})
		return
	}

	if err := s.store.SaveThreshold(&threshold); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold})
}

func (s *Server) handleChannels(c *gin.Context) {
	channels, err := s.store.AllChannels()
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (s *Server) handleSaveChannel(c *gin.Context) {
	var channel store.NotificationChannel
	if err := c.ShouldBindJSON(&channel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel payload"})
		return
	}
	if channel.Name == "" || channel.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and endpoint are required"})
		return
	}
	switch channel.Kind {
	case store.KindStructuredEmbed, store.KindChatBot, store.KindGenericJSON:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel kind"})
		return
	}

	if err := s.store.SaveChannel(&channel); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

func (s *Server) handleNodes(c *gin.Context) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

// handleActivateNode switches which node the collector polls. The switch
// takes effect on the next tick; no restart needed.
func (s *Server) handleActivateNode(c *gin.Context) {
	name := c.Param("name")
	if err := s.store.ActivateNode(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": name})
}

func (s *Server) handleCompare(c *gin.Context) {
	results, err := s.comparer.CompareAll(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": results})
}

func (s *Server) serverError(c *gin.Context, err error) {
	if s.log != nil {
		s.log.WithError(err).Error("api request failed")
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
