package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kitchenlens/relgraph/internal/util"
	"github.com/kitchenlens/relgraph/pkg/common"
	"github.com/kitchenlens/relgraph/pkg/logger"
	"github.com/kitchenlens/relgraph/pkg/source"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultBasicPath = "/api/graph/basic"
	DefaultFullPath  = "/api/graph/full"
)

// StatusError is returned when the dashboard backend answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// UpstreamSource loads collections from the dashboard backend's basic and
// full graph endpoints.
type UpstreamSource struct {
	baseURL    string
	basicPath  string
	fullPath   string
	token      string
	maxTries   int
	backoff    time.Duration
	timeout    time.Duration
	httpClient *http.Client
	group      singleflight.Group
}

// NewUpstreamSourceParams configures an UpstreamSource. Zero values select
// the defaults: the standard endpoint paths, 3 tries, 200ms initial backoff,
// source.FetchTimeout for the whole fetch and http.DefaultClient.
type NewUpstreamSourceParams struct {
	BaseURL    string
	BasicPath  string
	FullPath   string
	Token      string
	MaxTries   int
	Backoff    time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewUpstreamSource(params NewUpstreamSourceParams) (*UpstreamSource, error) {
	if _, err := url.ParseRequestURI(params.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", params.BaseURL, err)
	}
	s := &UpstreamSource{
		baseURL:    strings.TrimSuffix(params.BaseURL, "/"),
		basicPath:  params.BasicPath,
		fullPath:   params.FullPath,
		token:      params.Token,
		maxTries:   params.MaxTries,
		backoff:    params.Backoff,
		timeout:    params.Timeout,
		httpClient: params.HTTPClient,
	}
	if s.basicPath == "" {
		s.basicPath = DefaultBasicPath
	}
	if s.fullPath == "" {
		s.fullPath = DefaultFullPath
	}
	if s.maxTries <= 0 {
		s.maxTries = 3
	}
	if s.backoff <= 0 {
		s.backoff = 200 * time.Millisecond
	}
	if s.timeout <= 0 {
		s.timeout = source.FetchTimeout
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	return s, nil
}

func (s *UpstreamSource) endpoint(req source.Request) string {
	p := s.basicPath
	if req.Mode == common.ModeFull {
		p = s.fullPath
	}
	u := s.baseURL + p
	if req.Scope != "" {
		u += "?" + url.Values{"scope": {req.Scope}}.Encode()
	}
	return u
}

// Fetch implements source.RecordSource. Network errors and 5xx answers are
// retried with exponential backoff; 4xx answers are returned immediately.
func (s *UpstreamSource) Fetch(ctx context.Context, req source.Request) (common.RawCollections, error) {
	endpoint := s.endpoint(req)

	raw, shared, err := util.DoShared(ctx, &s.group, source.CacheKey(req), s.timeout, func(ctx context.Context) (common.RawCollections, error) {
		body, err := util.RetryWithBackoff(ctx, s.maxTries, s.backoff, func(ctx context.Context) ([]byte, error) {
			return s.get(ctx, endpoint)
		})
		if err != nil {
			return common.RawCollections{}, err
		}

		decoded, err := common.DecodeCollections(body, req.ModeOrBasic())
		if err != nil {
			return common.RawCollections{}, fmt.Errorf("failed to decode upstream payload: %w", err)
		}
		if decoded.Repaired {
			logger.Warn("[Source] Upstream payload was not valid JSON, repaired", "url", endpoint)
		}
		return decoded.Collections, nil
	})
	if err != nil {
		return common.RawCollections{}, err
	}
	if shared {
		logger.Debug("[Source] Collapsed concurrent upstream fetch", "url", endpoint)
	}
	return raw, nil
}

func (s *UpstreamSource) get(ctx context.Context, endpoint string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, util.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upstream: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, util.Permanent(fmt.Errorf("%w: %w", source.ErrNotFound, statusErr))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, util.Permanent(statusErr)
	}
	logger.Warn("[Source] Upstream fetch failed, retrying", "url", endpoint, "status", resp.StatusCode)
	return nil, statusErr
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
