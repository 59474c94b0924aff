package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yellowduckie/duckline/internal/catalog"
	"github.com/yellowduckie/duckline/internal/logger"
	"github.com/yellowduckie/duckline/internal/model"
)

const userAgent = "duckline/1.0"

// Options configures a Fetcher.
type Options struct {
	DataDir    string        // base directory for relative locations
	BaseURL    string        // when set, relative locations are fetched over HTTP
	Timeout    time.Duration // per request
	RatePerSec float64       // HTTP request rate; <= 0 disables limiting
	Retries    int           // extra HTTP attempts on 429/5xx/transport errors
	Logger     logrus.FieldLogger
}

// Fetcher resolves dataset locations to bytes and decodes them.
// It satisfies the pipeline's Loader interface.
type Fetcher struct {
	dataDir    string
	baseURL    string
	retries    int
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Entry
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// NewFetcher creates a Fetcher from opts.
func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
		if b := int(opts.RatePerSec); b > 1 {
			burst = b
		}
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Fetcher{
		dataDir:    opts.DataDir,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		retries:    retries,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		log:        logger.Component(opts.Logger, "source"),
	}
}

// Resolve returns the URL or file path a location refers to.
func (f *Fetcher) Resolve(location string) string {
	if isURL(location) {
		return location
	}
	if f.baseURL != "" {
		return f.baseURL + "/" + strings.TrimLeft(location, "/")
	}
	if filepath.IsAbs(location) || f.dataDir == "" {
		return location
	}
	return filepath.Join(f.dataDir, location)
}

// LocalPath returns the file a location resolves to, or false when it
// resolves to a URL.
func (f *Fetcher) LocalPath(location string) (string, bool) {
	target := f.Resolve(location)
	if isURL(target) {
		return "", false
	}
	return target, true
}

// Fetch returns the full contents of a location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	target := f.Resolve(location)
	if isURL(target) {
		return f.get(ctx, target)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	return data, nil
}

// Load fetches and decodes one dataset.
func (f *Fetcher) Load(ctx context.Context, d catalog.Dataset) ([]model.RawRecord, error) {
	data, err := f.Fetch(ctx, d.Location)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	var recs []model.RawRecord
	switch d.Format {
	case catalog.FormatJSON:
		recs, err = DecodePoints(bytes.NewReader(data), d.DateColumn, d.Extracts())
	default:
		recs, err = DecodeCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	f.log.WithFields(logrus.Fields{"dataset": d.Name, "rows": len(recs), "bytes": len(data)}).Debug("decoded")
	return recs, nil
}

// get performs a rate-limited GET with exponential backoff between attempts.
func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f.log.WithField("url", target).Debug("request")

	attempts := f.retries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))*500) * time.Millisecond
			f.log.WithFields(logrus.Fields{"attempt": attempt, "backoff": backoff}).Debug("retrying after backoff")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}
		f.log.WithFields(logrus.Fields{"status": resp.StatusCode, "bytes": len(body)}).Debug("response")

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &StatusError{URL: target, StatusCode: resp.StatusCode, Body: snippet(body)}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: snippet(body)}
		}
		return body, nil
	}
	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
