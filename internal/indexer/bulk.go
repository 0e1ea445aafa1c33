package indexer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/hyperjump/policysimplify/internal/models"
)

const (
	defaultDownloadTimeout = 25 * time.Second
	defaultDownloadRetries = 2
	maxDownloadBytes       = 64 << 20
)

type bulkOptions struct {
	client    *http.Client
	timeout   time.Duration
	retries   uint64
	retryBase time.Duration
}

func defaultBulkOptions() bulkOptions {
	return bulkOptions{
		client:    http.DefaultClient,
		timeout:   defaultDownloadTimeout,
		retries:   defaultDownloadRetries,
		retryBase: time.Second,
	}
}

// WithHTTPClient sets the client used to download bulk ingest URLs.
func WithHTTPClient(c *http.Client) IndexerOption {
	return func(idx *Indexer) {
		if c != nil {
			idx.bulk.client = c
		}
	}
}

// WithDownloadRetry sets the per-URL retry count and first backoff interval.
func WithDownloadRetry(retries uint64, base time.Duration) IndexerOption {
	return func(idx *Indexer) {
		idx.bulk.retries = retries
		if base > 0 {
			idx.bulk.retryBase = base
		}
	}
}

// BulkResult is the outcome of one CSV row.
type BulkResult struct {
	Name  string       `json:"name"`
	URL   string       `json:"url"`
	Card  *models.Card `json:"card,omitempty"`
	Error string       `json:"error,omitempty"`
}

// BulkIngest downloads and ingests every "name,url" row of a CSV with a header line. The
// format follows the name's extension and defaults to PDF. Rows
// without a URL are skipped; a failing row is recorded and the rest continue. The snapshot
// is saved once after all rows.
func (idx *Indexer) BulkIngest(ctx context.Context, tenant string, r io.Reader) ([]BulkResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	nameCol, urlCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameCol = i
		case "url":
			urlCol = i
		}
	}
	if urlCol < 0 {
		return nil, errors.New("csv has no url column")
	}

	results := make([]BulkResult, 0)
	ingested := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, fmt.Errorf("read csv: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		url := strings.TrimSpace(field(record, urlCol))
		if url == "" {
			continue
		}
		name := strings.TrimSpace(field(record, nameCol))
		if name == "" {
			name = path.Base(url)
		}
		if name == "" || name == "." || name == "/" {
			name = "policy.pdf"
		}

		res := BulkResult{Name: name, URL: url}
		idx.logger.Info("bulk ingest", zap.String("name", name), zap.String("url", url))
		data, err := idx.download(ctx, url)
		if err == nil {
			res.Card, err = idx.ingestBytes(ctx, tenant, name, formatFor(name), data, true)
		}
		if err != nil {
			res.Error = err.Error()
			idx.logger.Warn("bulk row failed", zap.String("name", name), zap.Error(err))
		} else {
			ingested++
		}
		results = append(results, res)
	}

	if ingested > 0 {
		if err := idx.Save(); err != nil {
			return results, err
		}
	}
	idx.logEvent(ctx, tenant, "bulk", fmt.Sprintf("%d of %d rows ingested", ingested, len(results)))
	return results, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// download fetches url, retrying transport errors, 429 and 5xx responses.
func (idx *Indexer) download(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(idx.bulk.retries, retry.NewExponential(idx.bulk.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, idx.bulk.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := idx.bulk.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("download %s: %w", url, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("download %s: status %d", url, resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read %s: %w", url, err))
		}
		body = data
		return nil
	})
	return body, err
}
