package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-platform/internal/auctionerrors"
	"auction-platform/internal/models"
	"auction-platform/services/bidding/helpers"
	"auction-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRouter(h *BiddingHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/bids", h.RecordBidHandler)
	router.GET("/api/bids/:auction_id", h.GetBidsByAuctionHandler)
	router.GET("/api/bids/:auction_id/highest", h.GetHighestBidHandler)
	return router
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// Test RecordBidHandler
func TestRecordBidHandler(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		bidder         string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
		validateData   func(t *testing.T, data map[string]any)
	}{
		{
			name:        "success_valid_bid",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", Amount: 100},
			bidder:      "alice",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "a1", "alice", 100, now).
					Return(models.Bid{
						ID:        uuid.NewString(),
						AuctionID: "a1",
						Bidder:    "alice",
						Amount:    100,
						BidTime:   now,
						Status:    models.BidAcceptedBelowReserve,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid recorded successfully",
			validateData: func(t *testing.T, data map[string]any) {
				_, parseErr := uuid.Parse(data["id"].(string))
				require.NoError(t, parseErr, "bid id should be a valid UUID")
				require.Equal(t, "a1", data["auction_id"])
				require.Equal(t, "alice", data["bidder"])
				require.Equal(t, 100.0, data["amount"])
				require.Equal(t, string(models.BidAcceptedBelowReserve), data["status"])
				require.Equal(t, now.Format(time.RFC3339Nano), data["bid_time"])
			},
		},
		{
			name:        "too_low_is_still_created",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", Amount: 5},
			bidder:      "bob",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "a1", "bob", 5, now).
					Return(models.Bid{ID: uuid.NewString(), AuctionID: "a1", Bidder: "bob", Amount: 5, BidTime: now, Status: models.BidTooLow}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid recorded successfully",
			validateData: func(t *testing.T, data map[string]any) {
				require.Equal(t, string(models.BidTooLow), data["status"])
			},
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			bidder:         "alice",
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_auction_id",
			requestBody:    helpers.PlaceBidRequest{Amount: 50},
			bidder:         "alice",
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "zero_amount",
			requestBody:    helpers.PlaceBidRequest{AuctionID: "a1", Amount: 0},
			bidder:         "alice",
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "negative_amount",
			requestBody:    helpers.PlaceBidRequest{AuctionID: "a1", Amount: -10},
			bidder:         "alice",
			mockSetup:      func(m *MockBiddingServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "service_validation",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", Amount: 1},
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "a1", "", 1, now).
					Return(models.Bid{}, fmt.Errorf("service: %w - empty bidder", auctionerrors.ErrValidation))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid bid details",
		},
		{
			name:        "unknown_auction",
			requestBody: helpers.PlaceBidRequest{AuctionID: "nope", Amount: 10},
			bidder:      "alice",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "nope", "alice", 10, now).
					Return(models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name:        "seller_bids",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", Amount: 10},
			bidder:      "sam",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "a1", "sam", 10, now).
					Return(models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrForbidden))
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "sellers cannot bid",
		},
		{
			name:        "store_unavailable",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", Amount: 10},
			bidder:      "alice",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "a1", "alice", 10, now).
					Return(models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrTransient))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "temporarily unavailable",
		},
		{
			name:        "service_generic_error",
			requestBody: helpers.PlaceBidRequest{AuctionID: "a1", Amount: 100},
			bidder:      "alice",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					PlaceBid(gomock.Any(), "a1", "alice", 100, now).
					Return(models.Bid{}, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockBiddingServiceInterface(ctrl)
			tc.mockSetup(mockService)
			h := NewBiddingHandler(mockService)
			h.now = func() time.Time { return now }

			var reqBody []byte
			var err error
			switch v := tc.requestBody.(type) {
			case string:
				reqBody = []byte(v)
			default:
				reqBody, err = json.Marshal(v)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/bids", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			if tc.bidder != "" {
				req.Header.Set(utils.UserHeader, tc.bidder)
			}
			w := httptest.NewRecorder()

			newRouter(h).ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decode(t, w)
			require.Contains(t, resp["message"], tc.expectedMsg)

			if tc.validateData != nil && w.Code == http.StatusCreated {
				tc.validateData(t, resp["data"].(map[string]any))
			}
		})
	}
}

// Test GetBidsByAuctionHandler
func TestGetBidsByAuctionHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		auctionID      string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
		wantLen        int
	}{
		{
			name:      "success_multiple_bids",
			auctionID: "a1",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().
					GetBidsForAuction(gomock.Any(), "a1").
					Return([]models.Bid{
						{ID: uuid.NewString(), AuctionID: "a1", Bidder: "u2", Amount: 150, BidTime: now.Add(time.Second), Status: models.BidAccepted},
						{ID: uuid.NewString(), AuctionID: "a1", Bidder: "u1", Amount: 100, BidTime: now, Status: models.BidAccepted},
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			wantLen:        2,
		},
		{
			name:      "no_bids",
			auctionID: "a2",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetBidsForAuction(gomock.Any(), "a2").Return([]models.Bid{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
		},
		{
			name:      "service_nil_slice",
			auctionID: "a3",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetBidsForAuction(gomock.Any(), "a3").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
		},
		{
			name:      "service_generic_error",
			auctionID: "a4",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetBidsForAuction(gomock.Any(), "a4").Return(nil, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
		{
			name:      "extremely_large_number_of_bids",
			auctionID: "a5",
			mockSetup: func(m *MockBiddingServiceInterface) {
				bids := make([]models.Bid, 1000)
				for i := range bids {
					bids[i] = models.Bid{ID: uuid.NewString(), AuctionID: "a5", Bidder: fmt.Sprintf("user%d", i), Amount: i + 1, BidTime: now}
				}
				m.EXPECT().GetBidsForAuction(gomock.Any(), "a5").Return(bids, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "bids retrieved successfully",
			wantLen:        1000,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockBiddingServiceInterface(ctrl)
			tc.mockSetup(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/bids/"+tc.auctionID, nil)
			w := httptest.NewRecorder()
			newRouter(NewBiddingHandler(mockService)).ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			resp := decode(t, w)
			require.Contains(t, resp["message"], tc.expectedMsg)

			if w.Code == http.StatusOK {
				data, ok := resp["data"].([]any)
				require.True(t, ok, "data must be a JSON array, never null")
				require.Len(t, data, tc.wantLen)
			}
		})
	}
}

// Test GetHighestBidHandler
func TestGetHighestBidHandler(t *testing.T) {
	tests := []struct {
		name           string
		mockSetup      func(m *MockBiddingServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetHighestBid(gomock.Any(), "a1").
					Return(models.Bid{ID: "b1", AuctionID: "a1", Bidder: "bob", Amount: 6000, Status: models.BidAccepted}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "highest bid retrieved successfully",
		},
		{
			name: "no_bids",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetHighestBid(gomock.Any(), "a1").
					Return(models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrNoBids))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "no highest bid found",
		},
		{
			name: "store_unavailable",
			mockSetup: func(m *MockBiddingServiceInterface) {
				m.EXPECT().GetHighestBid(gomock.Any(), "a1").
					Return(models.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrTransient))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "temporarily unavailable",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockService := NewMockBiddingServiceInterface(ctrl)
			tc.mockSetup(mockService)

			req := httptest.NewRequest(http.MethodGet, "/api/bids/a1/highest", nil)
			w := httptest.NewRecorder()
			newRouter(NewBiddingHandler(mockService)).ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			require.Contains(t, decode(t, w)["message"], tc.expectedMsg)
		})
	}
}
