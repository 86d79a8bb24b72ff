package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/handler"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// Handlers are left nil: every request below must be stopped by
// middleware before reaching one.
func newTestServer() *echo.Echo {
	e := echo.New()
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterAPI(e, Handlers{}, "secret", passthrough)
	return e
}

func TestAPIRoutesRequireToken(t *testing.T) {
	e := newTestServer()
	for _, path := range []string{"/v1/users/me", "/v1/rewards", "/v1/redeem-requests/mine", "/v1/activity-logs"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAPIRoutesCheckCapabilities(t *testing.T) {
	tests := []struct {
		role   string
		method string
		path   string
	}{
		{"customer", http.MethodGet, "/v1/redeem-requests"},
		{"customer", http.MethodPost, "/v1/redeem-requests/4/approve"},
		{"customer", http.MethodPost, "/v1/customers/4/purchases"},
		{"cashier", http.MethodPost, "/v1/customers/4/points"},
		{"cashier", http.MethodPost, "/v1/redeem-requests"},
		{"waiter", http.MethodGet, "/v1/activity-logs"},
		{"manager", http.MethodGet, "/v1/users"},
		{"customer", http.MethodGet, "/v1/users/owner/metrics"},
		{"cashier", http.MethodGet, "/v1/users/owner/metrics"},
		{"owner", http.MethodPost, "/v1/rewards"},
	}
	e := newTestServer()
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.path, func(t *testing.T) {
			tok, err := utils.NewAccessToken("secret", 9, tt.role, 5)
			require.NoError(t, err)
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tok.Token)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

// Metrics roles get past the capability check and reach the handler,
// which fails on the empty sqlmock with a 500.
func TestOwnerMetricsFollowsViewMetrics(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := echo.New()
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterAPI(e, Handlers{Dashboard: handler.NewDashboardHandler(repository.NewDashboardRepo(db))}, "secret", passthrough)

	for _, role := range []string{"manager", "admin", "owner"} {
		tok, err := utils.NewAccessToken("secret", 9, role, 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/v1/users/owner/metrics", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, role)
	}
}
