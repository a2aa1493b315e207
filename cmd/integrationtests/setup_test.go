package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-platform/internal/app"
	"auction-platform/internal/config"
	"auction-platform/internal/events"
	"auction-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Cluster runs the registry and the bidding+search services as two apps
// sharing one in-memory channel; the second reaches the registry over HTTP.
type Cluster struct {
	Bus      *events.MemoryBus
	Registry *app.App
	Core     *app.App

	RegistryRouter http.Handler
	CoreRouter     http.Handler
	RegistryURL    string
}

func testConfig(registryURL string, services ...string) config.Config {
	return config.Config{
		Port:             "0",
		Services:         services,
		DBDriver:         "memory",
		EventBus:         "memory",
		SweepInterval:    time.Hour,
		BackfillInterval: 10 * time.Millisecond,
		RegistryURL:      registryURL,
		BidRetryAttempts: 3,
		ShutdownTimeout:  time.Second,
	}
}

// StartCluster builds both apps. The registry consumes immediately; the core
// consumers are attached by SubscribeCore so tests can create auctions the
// core never hears about.
func StartCluster(t *testing.T) (*Cluster, context.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cluster{Bus: events.NewMemoryBus(events.WithRedeliveryDelay(10 * time.Millisecond))}

	var err error
	c.Registry, err = app.New(ctx, testConfig("", config.ServiceRegistry), app.WithBus(c.Bus))
	require.NoError(t, err)
	require.NoError(t, c.Registry.Subscribe(ctx))
	c.RegistryRouter = c.Registry.Router()

	srv := httptest.NewServer(c.RegistryRouter)
	c.RegistryURL = srv.URL

	c.Core, err = app.New(ctx, testConfig(srv.URL, config.ServiceBidding, config.ServiceSearch), app.WithBus(c.Bus))
	require.NoError(t, err)
	c.CoreRouter = c.Core.Router()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		require.NoError(t, c.Bus.Close())
	})
	return c, ctx
}

// SubscribeCore attaches the ledger and projector consumers.
func (c *Cluster) SubscribeCore(t *testing.T, ctx context.Context) {
	t.Helper()
	require.NoError(t, c.Core.Subscribe(ctx))
}

// ExecuteRequestAndParse executes an HTTP request on behalf of user and returns
// the envelope's data (or the whole envelope on errors)
func ExecuteRequestAndParse(t *testing.T, router http.Handler, method, url, user string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(utils.UserHeader, user)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if data, ok := resp["data"].(map[string]any); ok && w.Code < 300 {
			resp = data
		}
	}

	return resp, w
}

// CreateAuction posts an auction to the registry and returns its id.
func (c *Cluster) CreateAuction(t *testing.T, seller string, reserve int, end time.Time) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, c.RegistryRouter, http.MethodPost, "/api/auctions", seller, map[string]any{
		"make":          "Toyota",
		"model":         "Supra",
		"year":          1998,
		"color":         "Red",
		"mileage":       120000,
		"reserve_price": reserve,
		"auction_end":   end.UTC(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return resp["id"].(string)
}
