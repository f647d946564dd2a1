// Package torn fetches the item catalog from the Torn API.
package torn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/logger"
	"github.com/Mephiles/torn-travelbot/models"
)

// Reader fetches item catalog snapshots from the Torn items endpoint.
type Reader struct {
	config  *config.Config
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewReader creates a Reader with a pooled transport built from the catalog
// source's connection settings.
func NewReader(cfg *config.Config) *Reader {
	log := logger.GetLogger()

	pool := cfg.Source.Catalog.ConnectionPool
	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
	}

	reader := &Reader{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Reader.Timeout,
		},
		limiter: rate.NewLimiter(
			rate.Limit(cfg.Reader.RateLimit.RequestsPerSecond),
			cfg.Reader.RateLimit.BurstSize,
		),
		log: log,
	}

	log.WithComponent("torn_reader").WithFields(logger.Fields{
		"max_idle_conns":     pool.MaxIdleConns,
		"max_conns_per_host": pool.MaxConnsPerHost,
		"timeout":            cfg.Reader.Timeout,
	}).Info("torn reader initialized")

	return reader
}

// FetchCatalog retrieves and decodes the full item catalog. Any failure
// (transport, non-2xx, malformed payload, Torn error envelope) returns an
// error and the caller keeps serving its previous snapshot.
func (r *Reader) FetchCatalog(ctx context.Context) (map[int]models.Item, error) {
	log := r.log.WithComponent("torn_reader").WithFields(logger.Fields{"operation": "fetch_catalog"})

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := strings.ReplaceAll(r.config.Source.Catalog.URL, config.APIKeyPlaceholder, r.config.Travelbot.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	logger.LogPerformanceEntry(log, "torn_reader", "api_request", time.Since(start), nil)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog fetch returned status %d", resp.StatusCode)
	}

	var payload models.TornItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("torn API error %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("catalog payload has no items")
	}

	items := make(map[int]models.Item, len(payload.Items))
	for rawID, wire := range payload.Items {
		id, err := strconv.Atoi(rawID)
		if err != nil {
			return nil, fmt.Errorf("catalog item id %q is not numeric", rawID)
		}
		items[id] = models.Item{
			ID:          id,
			Name:        wire.Name,
			MarketValue: wire.MarketValue,
			Category:    models.CategoryFromType(wire.Type),
		}
	}

	logger.IncrementCatalogFetch(len(items))
	log.WithFields(logger.Fields{"items": len(items)}).Info("catalog fetched")
	return items, nil
}
