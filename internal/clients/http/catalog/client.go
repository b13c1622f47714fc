package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
)

// ErrNotFound is returned when the catalog service answers 404.
var ErrNotFound = errors.New("catalog resource not found")

// Garment is the wire representation of a catalog garment.
type Garment struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category *string `json:"category,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Size is the wire representation of a catalog size.
type Size struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Client is the wire representation of a client directory entry.
type Client struct {
	Kind      string  `json:"kind"`
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Reference *string `json:"reference,omitempty"`
}

// Error is the error body returned by the catalog service.
type Error struct {
	Message *string `json:"message,omitempty"`
}

// HTTPClient wraps the catalog REST API.
type HTTPClient struct {
	server string
	http   *http.Client
}

// NewCatalogClient instantiates the catalog client with sane defaults.
func NewCatalogClient(baseURL string, httpClient *http.Client) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPClient{server: baseURL, http: httpClient}, nil
}

// GetGarment fetches GET /garments/{garmentId}.
func (c *HTTPClient) GetGarment(ctx context.Context, id int64) (*Garment, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, "garmentId", runtime.ParamLocationPath, id)
	if err != nil {
		return nil, err
	}
	var out Garment
	if err := c.get(ctx, "/garments/"+param, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSize fetches GET /sizes/{sizeId}.
func (c *HTTPClient) GetSize(ctx context.Context, id int64) (*Size, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, "sizeId", runtime.ParamLocationPath, id)
	if err != nil {
		return nil, err
	}
	var out Size
	if err := c.get(ctx, "/sizes/"+param, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetClient fetches GET /clients/{kind}/{clientId}.
func (c *HTTPClient) GetClient(ctx context.Context, kind string, id int64) (*Client, error) {
	kindParam, err := runtime.StyleParamWithLocation("simple", false, "kind", runtime.ParamLocationPath, kind)
	if err != nil {
		return nil, err
	}
	idParam, err := runtime.StyleParamWithLocation("simple", false, "clientId", runtime.ParamLocationPath, id)
	if err != nil {
		return nil, err
	}
	var out Client
	if err := c.get(ctx, "/clients/"+kindParam+"/"+idParam, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	if c == nil || c.http == nil {
		return errors.New("catalog client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call catalog API: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return json.Unmarshal(body, out)
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("catalog API error: %s", errorMessage(body, resp.Status))
	default:
		return fmt.Errorf("catalog API unexpected status: %s", resp.Status)
	}
}

func errorMessage(body []byte, fallback string) string {
	var e Error
	if err := json.Unmarshal(body, &e); err != nil || e.Message == nil {
		return fallback
	}
	if msg := strings.TrimSpace(*e.Message); msg != "" {
		return msg
	}
	return fallback
}
