package registryclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/models"
	"auction-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func registryServer(t *testing.T, auctions []models.Auction) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/auctions", func(c *gin.Context) {
		since := time.Time{}
		if raw := c.Query("date"); raw != "" {
			var err error
			since, err = time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				utils.JSONError(c, http.StatusBadRequest, err, "invalid date")
				return
			}
		}
		out := []models.Auction{}
		for _, a := range auctions {
			if a.UpdatedAt.After(since) {
				out = append(out, a)
			}
		}
		utils.JSONResponse(c, http.StatusOK, out, "auctions retrieved successfully")
	})
	r.GET("/api/auctions/:id", func(c *gin.Context) {
		switch id := c.Param("id"); id {
		case "broken":
			utils.JSONResponse(c, http.StatusServiceUnavailable, nil, "store unavailable")
		default:
			for _, a := range auctions {
				if a.ID == id {
					utils.JSONResponse(c, http.StatusOK, a, "auction retrieved successfully")
					return
				}
			}
			utils.JSONResponse(c, http.StatusNotFound, nil, "auction not found")
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AuctionsSince(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC)
	auctions := []models.Auction{
		{ID: "a1", Seller: "sam", ReservePrice: 100, UpdatedAt: t0},
		{ID: "a2", Seller: "sam", ReservePrice: 200, UpdatedAt: t0.Add(time.Microsecond)},
	}
	client := New(registryServer(t, auctions).URL+"/", nil)

	all, err := client.AuctionsSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	later, err := client.AuctionsSince(context.Background(), t0)
	require.NoError(t, err)
	require.Len(t, later, 1)
	require.Equal(t, "a2", later[0].ID)
	require.True(t, auctions[1].UpdatedAt.Equal(later[0].UpdatedAt))
}

func TestClient_GetAuction(t *testing.T) {
	t.Parallel()

	client := New(registryServer(t, []models.Auction{{ID: "a1", Seller: "sam", ReservePrice: 100}}).URL, nil)

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "found", id: "a1"},
		{name: "unknown", id: "nope", wantErr: auctionerrors.ErrNotFound},
		{name: "server_error", id: "broken", wantErr: auctionerrors.ErrTransient},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a, err := client.GetAuction(context.Background(), tc.id)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "sam", a.Seller)
			require.Equal(t, 100, a.ReservePrice)
		})
	}
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, &http.Client{Timeout: time.Second}).AuctionsSince(context.Background(), time.Time{})
	require.ErrorIs(t, err, auctionerrors.ErrTransient)
	require.True(t, auctionerrors.IsRetryable(err))
}
