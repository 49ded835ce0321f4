package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/profilecache/internal/core/domain"
)

const op = "source.fetch"

// HTTPSource fetches profiles from a REST endpoint: GET {base}/profiles/{id}.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTP-backed profile source. The client timeout
// bounds every fetch.
func NewHTTPSource(baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch retrieves one profile. 404 and a JSON null body both mean no record.
func (s *HTTPSource) Fetch(ctx context.Context, subjectID string) (*domain.Profile, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, domain.Errorf(domain.KindMalformed, op, "empty subject id")
	}

	endpoint := fmt.Sprintf("%s/profiles/%s", s.baseURL, url.PathEscape(subjectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindMalformed, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(transportKind(err), op, fmt.Errorf("profile request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewError(transportKind(err), op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(statusKind(resp.StatusCode), op,
			fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var p *domain.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.NewError(domain.KindMalformed, op, fmt.Errorf("parse response: %w", err))
	}
	return p, nil
}

func transportKind(err error) domain.ErrorKind {
	if kind := domain.KindOf(err); kind != domain.KindUnknown {
		return kind
	}
	return domain.KindNetwork
}

func statusKind(code int) domain.ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.KindMalformed
	case http.StatusGone:
		return domain.KindNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.KindTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return domain.KindNetwork
	default:
		return domain.KindUnknown
	}
}
