package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/almog/internal/domain/ingest"
	"github.com/okian/almog/internal/domain/model"
	"github.com/okian/almog/pkg/logger"
)

// Stats summarises one upload.
type Stats struct {
	Batches  int
	Accepted int
	Rejected int
	Failed   int
}

// UploadResult mirrors the POST /sessions response.
type UploadResult struct {
	Accepted int      `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// PostSessions uploads one batch of rows.
func (c *HTTPClient) PostSessions(ctx context.Context, rows []ingest.Row) (UploadResult, error) {
	body, err := json.Marshal(rows)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: read body: %w", ErrUpload, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return UploadResult{}, fmt.Errorf("%w: status %d: %s", ErrUpload, resp.StatusCode, bytes.TrimSpace(data))
	}
	var out UploadResult
	if err := json.Unmarshal(data, &out); err != nil {
		return UploadResult{}, fmt.Errorf("%w: decode body: %w", ErrUpload, err)
	}
	return out, nil
}

// Post uploads recs to the service in concurrent batches. Each batch is
// independent, so a failed batch is counted and the rest continue.
func Post(ctx context.Context, cfg Config, recs []model.SessionRecord) (Stats, error) {
	cfg = cfg.withDefaults()
	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	rows := Rows(recs)
	log := logger.Named("seed")

	var accepted, rejected, failed, batches int64
	batchChan := make(chan []ingest.Row, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchChan {
				atomic.AddInt64(&batches, 1)
				resp, err := client.PostSessions(ctx, batch)
				if err != nil {
					atomic.AddInt64(&failed, int64(len(batch)))
					log.Warn(ctx, "batch upload failed", logger.Int("rows", len(batch)), logger.Error(err))
					continue
				}
				atomic.AddInt64(&accepted, int64(resp.Accepted))
				atomic.AddInt64(&rejected, int64(len(resp.Rejected)))
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for start := 0; start < len(rows); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(rows))
			select {
			case <-ctx.Done():
				return
			case batchChan <- rows[start:end]:
			}
		}
	}()

	wg.Wait()

	stats := Stats{
		Batches:  int(atomic.LoadInt64(&batches)),
		Accepted: int(atomic.LoadInt64(&accepted)),
		Rejected: int(atomic.LoadInt64(&rejected)),
		Failed:   int(atomic.LoadInt64(&failed)),
	}
	log.Info(ctx, "season uploaded",
		logger.Int("batches", stats.Batches),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
	switch {
	case ctx.Err() != nil:
		return stats, fmt.Errorf("upload cancelled: %w", ctx.Err())
	case stats.Failed > 0:
		return stats, fmt.Errorf("%w: %d rows in failed batches", ErrUpload, stats.Failed)
	case stats.Rejected > 0:
		return stats, fmt.Errorf("%w: %d rows", ErrRejected, stats.Rejected)
	}
	return stats, nil
}
