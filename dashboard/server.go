// Package dashboard hosts a small Gin-powered diagnostics server: liveness,
// snapshot freshness and the recent activity log.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/logger"
	"github.com/Mephiles/torn-travelbot/logring"
	"github.com/Mephiles/torn-travelbot/models"
	"github.com/Mephiles/torn-travelbot/store"
)

// Server hosts the diagnostics HTTP endpoints.
type Server struct {
	cfg        config.DashboardConfig
	refresh    config.RefreshConfig
	log        *logger.Log
	catalog    *store.Catalog
	stocks     *store.Stock
	ring       *logring.Ring
	httpServer *http.Server
	now        func() time.Time
}

// NewServer constructs a diagnostics server when the feature is enabled.
// When disabled the returned server is nil and every method is a no-op.
func NewServer(cfg config.DashboardConfig, refresh config.RefreshConfig, log *logger.Log, catalog *store.Catalog, stocks *store.Stock, ring *logring.Ring) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.LogHistory <= 0 {
		cfg.LogHistory = 200
	}

	return &Server{
		cfg:     cfg,
		refresh: refresh,
		log:     log,
		catalog: catalog,
		stocks:  stocks,
		ring:    ring,
		now:     time.Now,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/api/status", func(c *gin.Context) {
		now := s.now()
		catalog := s.catalog.Snapshot()
		stocks := s.stocks.Snapshot()

		c.JSON(http.StatusOK, gin.H{
			"catalog": snapshotStatus(catalog.Loaded(), catalog.FetchedAt, s.refresh.CatalogMaxAge, now),
			"stock":   stockStatus(stocks, s.refresh.StockMaxAge, now),
		})
	})

	router.GET("/api/logs", func(c *gin.Context) {
		count := 0
		if raw := c.Query("count"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				count = parsed
			}
		}
		if count <= 0 || count > s.cfg.LogHistory {
			count = s.cfg.LogHistory
		}

		entries := s.ring.Tail(count)
		payload := make([]gin.H, 0, len(entries))
		for _, entry := range entries {
			payload = append(payload, gin.H{
				"timestamp": entry.Time.Format(time.RFC3339Nano),
				"stamp":     entry.Stamp,
				"message":   entry.Message,
			})
		}
		c.JSON(http.StatusOK, gin.H{"logs": payload})
	})

	return router, nil
}

func snapshotStatus(loaded bool, fetchedAt time.Time, maxAge time.Duration, now time.Time) gin.H {
	status := gin.H{
		"loaded": loaded,
		"stale":  !loaded || now.Sub(fetchedAt) >= maxAge,
	}
	if loaded {
		status["fetched_at"] = fetchedAt.Format(time.RFC3339Nano)
		status["age_seconds"] = int64(now.Sub(fetchedAt) / time.Second)
	}
	return status
}

func stockStatus(snap models.StockSnapshot, maxAge time.Duration, now time.Time) gin.H {
	status := snapshotStatus(snap.Loaded(), snap.FetchedAt, maxAge, now)
	if snap.Loaded() {
		status["degraded"] = snap.Degraded
		status["countries"] = len(snap.Countries)
	}
	return status
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8081"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8081"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8081")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8081")
	}

	return addr
}
