// Package yata fetches the per-country travel stock feed from YATA.
package yata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mephiles/torn-travelbot/config"
	"github.com/Mephiles/torn-travelbot/logger"
	"github.com/Mephiles/torn-travelbot/models"
)

// Reader fetches stock snapshots from the YATA travel export endpoint.
type Reader struct {
	config  *config.Config
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewReader creates a Reader with a pooled transport built from the stock
// source's connection settings.
func NewReader(cfg *config.Config) *Reader {
	log := logger.GetLogger()

	pool := cfg.Source.Stock.ConnectionPool
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

	log.WithComponent("yata_reader").WithFields(logger.Fields{
		"max_idle_conns":     pool.MaxIdleConns,
		"max_conns_per_host": pool.MaxConnsPerHost,
		"timeout":            cfg.Reader.Timeout,
	}).Info("yata reader initialized")

	return reader
}

// FetchStocks retrieves and decodes the travel export. Entries come back
// without categories; enrichment against the catalog is the scheduler's job.
func (r *Reader) FetchStocks(ctx context.Context) (map[string]models.CountryStock, error) {
	log := r.log.WithComponent("yata_reader").WithFields(logger.Fields{"operation": "fetch_stocks"})

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.Source.Stock.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stocks: %w", err)
	}
	defer resp.Body.Close()
	logger.LogPerformanceEntry(log, "yata_reader", "api_request", time.Since(start), nil)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stock fetch returned status %d", resp.StatusCode)
	}

	var payload models.YataExportResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode stocks: %w", err)
	}
	if len(payload.Stocks) == 0 {
		return nil, fmt.Errorf("stock payload has no countries")
	}

	countries := make(map[string]models.CountryStock, len(payload.Stocks))
	total := 0
	for key, wire := range payload.Stocks {
		entries := make([]models.StockEntry, 0, len(wire.Stocks))
		for _, line := range wire.Stocks {
			entries = append(entries, models.StockEntry{
				ItemID:   line.ID,
				Name:     line.Name,
				Cost:     line.Cost,
				Quantity: line.Quantity,
			})
		}
		countries[key] = models.CountryStock{
			UpdatedAt: time.Unix(wire.Update, 0).UTC(),
			Entries:   entries,
		}
		total += len(entries)
	}

	logger.IncrementStockFetch(total)
	log.WithFields(logger.Fields{
		"countries": len(countries),
		"entries":   total,
	}).Info("stocks fetched")
	return countries, nil
}
