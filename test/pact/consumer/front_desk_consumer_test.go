//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/uniform-orders-api/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

const uuidPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

type stockPayload struct {
	GarmentID   int64  `json:"garmentId"`
	SizeID      int64  `json:"sizeId"`
	RetailPrice string `json:"retailPrice"`
	OnHand      int    `json:"onHand"`
	Active      bool   `json:"active"`
}

type orderLinePayload struct {
	Requested   int `json:"requested"`
	Fulfilled   int `json:"fulfilled"`
	Backordered int `json:"backordered"`
}

type orderPayload struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Total  string             `json:"total"`
	Lines  []orderLinePayload `json:"lines"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type apiError struct {
	status int
	title  string
	detail string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func (e apiError) Status() int {
	return e.status
}

func TestFrontDeskContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	notFound := matchers.Map{
		"type":   matchers.S("/problems/not-found"),
		"title":  matchers.S("Resource Not Found"),
		"status": matchers.Like(http.StatusNotFound),
		"code":   matchers.S("NotFound"),
	}

	pact.AddInteraction().
		Given(pacttest.StateStockDefined).
		UponReceiving("a request for a defined stock record").
		WithRequest("GET", fmt.Sprintf("/v1/stock/%d/%d", pacttest.GarmentID, pacttest.SizeID)).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"garmentId":   matchers.Like(pacttest.GarmentID),
				"sizeId":      matchers.Like(pacttest.SizeID),
				"retailPrice": matchers.Like(pacttest.RetailPrice),
				"onHand":      matchers.Like(pacttest.OnHand),
				"active":      matchers.Like(true),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateStockMissing).
		UponReceiving("a request for a missing stock record").
		WithRequest("GET", fmt.Sprintf("/v1/stock/%d/%d", pacttest.GarmentID, pacttest.MissingSizeID)).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(notFound)
		})

	pact.AddInteraction().
		Given(pacttest.StateCatalogReady).
		UponReceiving("a request to place an order").
		WithRequest("POST", "/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExampleOrderRequest())
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":     matchers.Term("6c1b1f3e-8a47-4d2a-9d0c-3f5e2c7a9b10", uuidPattern),
				"status": matchers.S("PEDIDO"),
				"total":  matchers.Like("250"),
				"lines": matchers.EachLike(matchers.Map{
					"requested":   matchers.Like(2),
					"fulfilled":   matchers.Like(2),
					"backordered": matchers.Like(0),
				}, 1),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateNoOrders).
		UponReceiving("a request for a missing order").
		WithRequest("GET", "/v1/orders/"+pacttest.MissingOrderID).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(notFound)
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newFrontDeskClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var stock stockPayload
		if err := client.get(ctx, fmt.Sprintf("/v1/stock/%d/%d", pacttest.GarmentID, pacttest.SizeID), &stock); err != nil {
			return fmt.Errorf("read stock: %w", err)
		}
		if stock.GarmentID != pacttest.GarmentID || !stock.Active {
			return fmt.Errorf("unexpected stock record %+v", stock)
		}
		if err := expectNotFound(client.get(ctx, fmt.Sprintf("/v1/stock/%d/%d", pacttest.GarmentID, pacttest.MissingSizeID), &stock)); err != nil {
			return err
		}

		var order orderPayload
		if err := client.post(ctx, "/v1/orders", pacttest.ExampleOrderRequest(), &order); err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if order.ID == "" || order.Status != "PEDIDO" || len(order.Lines) == 0 {
			return fmt.Errorf("unexpected order %+v", order)
		}
		return expectNotFound(client.get(ctx, "/v1/orders/"+pacttest.MissingOrderID, &order))
	})
	require.NoError(t, err)
}

func expectNotFound(err error) error {
	if err == nil {
		return fmt.Errorf("expected 404, got success")
	}
	if apiErr, ok := err.(apiError); ok && apiErr.Status() != http.StatusNotFound {
		return fmt.Errorf("expected 404, got %d", apiErr.Status())
	}
	return nil
}

type frontDeskClient struct {
	baseURL    string
	httpClient *http.Client
}

func newFrontDeskClient(config pactconsumer.MockServerConfig) *frontDeskClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	client := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	return &frontDeskClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: client,
	}
}

func (c *frontDeskClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *frontDeskClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *frontDeskClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{
		status: status,
		title:  problem.Title,
		detail: problem.Detail,
	}
}
