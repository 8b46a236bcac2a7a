package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/telemetry"
)

const dateLayout = "2006-01-02"

type Reports interface {
	OrdersPerDay(ctx context.Context, rng Range) ([]Point, error)
	RevenuePerDay(ctx context.Context, rng Range) ([]Point, error)
	HotSelling(ctx context.Context, rng Range) ([]Point, error)
	OrdersByPhone(ctx context.Context, phone string) ([]PhoneOrder, error)
}

type Handler struct {
	reports Reports
	logger  *slog.Logger
}

func NewHandler(reports Reports, logger *slog.Logger) *Handler {
	return &Handler{
		reports: reports,
		logger:  logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard/orders-per-day", telemetry.WithHTTPRoute(h.series("orders per day", h.reports.OrdersPerDay)))
	mux.HandleFunc("GET /dashboard/revenue-per-day", telemetry.WithHTTPRoute(h.series("revenue per day", h.reports.RevenuePerDay)))
	mux.HandleFunc("GET /dashboard/hot-selling", telemetry.WithHTTPRoute(h.series("hot selling products", h.reports.HotSelling)))
	mux.HandleFunc("GET /dashboard/phones/{phone}/orders", telemetry.WithHTTPRoute(h.HandleOrdersByPhone))
}

func (h *Handler) series(name string, fn func(context.Context, Range) ([]Point, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, err := parseRange(r)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		points, err := fn(r.Context(), rng)
		if err != nil {
			h.logger.Error("failed to build report", "error", err, "report", name)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.writeJSON(w, http.StatusOK, points)
	}
}

func (h *Handler) HandleOrdersByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	if phone == "" {
		h.writeError(w, http.StatusBadRequest, "missing phone")
		return
	}

	orders, err := h.reports.OrdersByPhone(r.Context(), phone)
	if err != nil {
		h.logger.Error("failed to list orders by phone", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// parseRange reads start_date, end_date and branch. Dates are either a day
// (yyyy-mm-dd) or RFC 3339; a day-only end_date covers the whole day.
func parseRange(r *http.Request) (Range, error) {
	q := r.URL.Query()

	start, _, err := parseDate(q.Get("start_date"))
	if err != nil {
		return Range{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, dayOnly, err := parseDate(q.Get("end_date"))
	if err != nil {
		return Range{}, fmt.Errorf("invalid end_date: %w", err)
	}
	if dayOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return Range{}, errors.New("end_date is before start_date")
	}

	branch := q.Get("branch")
	if branch == "" {
		branch = AllBranches
	}
	return Range{Start: start, End: end, Branch: branch}, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, errors.New("value is required")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
