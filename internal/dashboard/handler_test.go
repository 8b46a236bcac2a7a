package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReports struct {
	rng   Range
	phone string
	err   error
}

func (f *fakeReports) OrdersPerDay(_ context.Context, rng Range) ([]Point, error) {
	f.rng = rng
	return []Point{{Label: "2026-03-01", Value: 3}}, f.err
}

func (f *fakeReports) RevenuePerDay(_ context.Context, rng Range) ([]Point, error) {
	f.rng = rng
	return []Point{{Label: "2026-03-01", Value: 120000}}, f.err
}

func (f *fakeReports) HotSelling(_ context.Context, rng Range) ([]Point, error) {
	f.rng = rng
	return []Point{{Label: "Phone", Value: 9}}, f.err
}

func (f *fakeReports) OrdersByPhone(_ context.Context, phone string) ([]PhoneOrder, error) {
	f.phone = phone
	return []PhoneOrder{{ID: "o-1", Status: "Completed", Total: 500}}, f.err
}

func serve(t *testing.T, reports Reports, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(reports, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSeriesRange(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStart  time.Time
		wantEnd    time.Time
		wantBranch string
	}{
		{
			name:       "day range covers the end day",
			target:     "/dashboard/orders-per-day?start_date=2026-03-01&end_date=2026-03-31&branch=b-1",
			wantStart:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC),
			wantBranch: "b-1",
		},
		{
			name:       "timestamps and default branch",
			target:     "/dashboard/revenue-per-day?start_date=2026-03-01T00:00:00Z&end_date=2026-03-02T12:00:00Z",
			wantStart:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
			wantBranch: AllBranches,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &fakeReports{}
			rec := serve(t, reports, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)

			assert.True(t, tt.wantStart.Equal(reports.rng.Start))
			assert.True(t, tt.wantEnd.Equal(reports.rng.End))
			assert.Equal(t, tt.wantBranch, reports.rng.Branch)

			var points []Point
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&points))
			assert.Len(t, points, 1)
		})
	}
}

func TestSeriesRejectsBadRange(t *testing.T) {
	for _, target := range []string{
		"/dashboard/hot-selling",
		"/dashboard/hot-selling?start_date=2026-03-01",
		"/dashboard/hot-selling?start_date=yesterday&end_date=2026-03-01",
		"/dashboard/hot-selling?start_date=2026-03-02&end_date=2026-03-01",
	} {
		rec := serve(t, &fakeReports{}, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestReportFailure(t *testing.T) {
	rec := serve(t, &fakeReports{err: errors.New("db down")}, "/dashboard/hot-selling?start_date=2026-03-01&end_date=2026-03-02")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOrdersByPhone(t *testing.T) {
	reports := &fakeReports{}
	rec := serve(t, reports, "/dashboard/phones/0868738097/orders")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0868738097", reports.phone)

	var orders []PhoneOrder
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, int64(500), orders[0].Total)
}
