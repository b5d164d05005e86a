package datalake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodySizeBytes = 32 << 20

// Config holds the datalake export endpoints and their shared access token.
// None of the fields are required at startup: a missing endpoint or token is
// a fetch-time failure, never a crash.
type Config struct {
	ResumenCierreURL          string        `envconfig:"RESUMEN_CIERRE_URL" split_words:"true"`
	ResumenCierreNormativoURL string        `envconfig:"RESUMEN_CIERRE_NORMATIVO_URL" split_words:"true"`
	DetalleTareasURL          string        `envconfig:"DETALLE_TAREAS_URL" split_words:"true"`
	Token                     string        `envconfig:"TOKEN" split_words:"true"`
	Timeout                   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Client downloads datalake exports over HTTP. The access token travels as
// the query string of every request, the way the lake's shared-access links
// are issued.
type Client struct {
	token      string
	httpClient *http.Client
}

var (
	ErrEndpointNotConfigured = errors.New("datalake endpoint is not configured")
	ErrTokenNotConfigured    = errors.New("datalake access token is not configured")
)

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		token: strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs a GET against one configured endpoint and returns the raw
// body. Endpoint and token presence are validated here so that misconfigured
// deployments degrade per request instead of failing process startup.
func (c *Client) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEndpointNotConfigured
	}
	if c.token == "" {
		return nil, ErrTokenNotConfigured
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid datalake url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+c.token, nil)
	if err != nil {
		return nil, fmt.Errorf("build datalake request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute datalake request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read datalake response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("datalake http status=%d url=%s", resp.StatusCode, endpoint)
	}

	return body, nil
}
