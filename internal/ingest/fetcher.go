package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"recnorm/internal/config"
	"recnorm/internal/logger"
	"recnorm/internal/models"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Fetcher pulls raw rows from a paginated JSON API. Requests run
// sequentially with a fixed delay between pages to respect the upstream
// rate limit; per-request failures retry with exponential backoff. Fetch
// errors are the caller's to retry or abort; the normalizer core only ever
// sees the in-memory table this produces.
type Fetcher struct {
	client *http.Client
	cfg    *config.FetchConfig
	log    *logger.Logger
}

// NewFetcher creates a new fetcher from the fetch config.
func NewFetcher(cfg *config.FetchConfig, log *logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Retry.GetTimeout(),
		},
		cfg: cfg,
		log: log,
	}
}

// pageResponse accepts the two row-list shapes upstream APIs use.
type pageResponse struct {
	Rows     []map[string]any `json:"rows"`
	Articles []map[string]any `json:"articles"`
}

// FetchTable fetches all configured pages and concatenates their rows into
// one raw table. Column order follows first appearance.
func (f *Fetcher) FetchTable() (*models.Table, error) {
	table := &models.Table{}
	seen := make(map[string]bool)
	line := 0

	for page := 1; page <= f.cfg.Pages; page++ {
		if page > 1 {
			time.Sleep(f.cfg.GetPageDelay())
		}

		rows, err := f.fetchPage(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		f.log.Debug("page fetched", "page", page, "rows", len(rows))

		for _, row := range rows {
			line++

			fields := make(map[string]string, len(row))

			for _, key := range sortedKeys(row) {
				fields[key] = flattenValue(row[key])

				if !seen[key] {
					table.Columns = append(table.Columns, key)
					seen[key] = true
				}
			}

			table.Rows = append(table.Rows, models.RawRecord{
				Line:   line,
				Fields: fields,
			})
		}
	}

	return table, nil
}

// fetchPage fetches one page with the configured retry policy.
func (f *Fetcher) fetchPage(page int) ([]map[string]any, error) {
	url := f.pageURL(page)

	var lastErr error

	for attempt := 1; attempt <= f.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if delay := f.cfg.Retry.GetRetryDelay(attempt); delay > 0 {
				time.Sleep(delay)
			}
		}

		req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, f.cfg.Retry.MaxAttempts, err)

			continue
		}

		body, readErr := f.readBody(resp)

		if closeErr := resp.Body.Close(); closeErr != nil && lastErr == nil {
			lastErr = fmt.Errorf("failed to close response body: %w", closeErr)
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)

			if !isRetryableStatus(resp.StatusCode) {
				return nil, lastErr
			}

			continue
		}

		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)

			continue
		}

		var decoded pageResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}

		if len(decoded.Rows) > 0 {
			return decoded.Rows, nil
		}

		return decoded.Articles, nil
	}

	return nil, lastErr
}

func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	limit := int64(f.cfg.MaxBodyKb) * 1024
	if limit <= 0 {
		limit = 4 * 1024 * 1024
	}

	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func (f *Fetcher) pageURL(page int) string {
	param := f.cfg.PageParam
	if param == "" {
		param = "page"
	}

	sep := "?"
	if strings.Contains(f.cfg.BaseURL, "?") {
		sep = "&"
	}

	return f.cfg.BaseURL + sep + param + "=" + strconv.Itoa(page)
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout:
		return true
	}

	return false
}

// flattenValue renders a JSON value as a raw field string. Nested objects
// flatten to "key=value;key=value" so the extract rule can pull sub-values
// out later.
func flattenValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}

		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any:
		parts := make([]string, 0, len(val))
		for _, k := range sortedKeys(val) {
			parts = append(parts, k+"="+flattenValue(val[k]))
		}

		return strings.Join(parts, ";")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, flattenValue(item))
		}

		return strings.Join(parts, ";")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
