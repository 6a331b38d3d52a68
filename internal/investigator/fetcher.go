package investigator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Harshitk-cp/credence/internal/buildconfig"
	"github.com/Harshitk-cp/credence/internal/rdf"
)

var ErrBodyTooLarge = errors.New("response body too large")

// Response is what an investigator sees of a fetch.
type Response struct {
	Status      int
	Body        []byte
	URL         string
	ContentType string
}

// Fetcher performs a single request. Redirects are returned as-is, never
// followed.
type Fetcher interface {
	Fetch(ctx context.Context, method, address string) (*Response, error)
}

type TransportConfig struct {
	MaxBodyBytes        int64
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxBodyBytes:        4 << 20,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

func NewHTTPFetcher(cfg TransportConfig) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBody: cfg.MaxBodyBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, method, address string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", rdf.Accept())
	req.Header.Set("User-Agent", buildconfig.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.maxBody > 0 {
		reader = io.LimitReader(resp.Body, f.maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBody > 0 && int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBody)
	}

	return &Response{
		Status:      resp.StatusCode,
		Body:        body,
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
