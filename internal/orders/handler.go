package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/telemetry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Register mounts every order route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(fn))
	}

	handle("POST /orders", h.HandleCreate)
	handle("GET /orders", h.HandleFindAll)
	handle("GET /orders/batch", h.HandleFindAllByIDs)
	handle("GET /orders/{id}", h.HandleGet)
	handle("GET /orders/{id}/banking", h.HandleGetBanking)
	handle("PATCH /orders/{id}", h.HandleUpdateAddress)
	handle("DELETE /orders/{id}", h.HandleDelete)
	handle("POST /orders/{id}/cancel", h.customer((*Service).Cancel))
	handle("POST /orders/{id}/return", h.customer((*Service).Return))
	handle("POST /orders/{id}/received", h.customer((*Service).MarkAsReceived))
	handle("POST /orders/{id}/resell", h.HandleResell)
	handle("POST /orders/{id}/comment", h.HandleComment)
	handle("POST /orders/{id}/payment", h.HandleMakePayment)
	handle("GET /users/{userID}/orders", h.HandleFindAllByUser)
	handle("GET /employee/orders", h.HandleEmployeeQueue)
	handle("POST /employee/orders/{id}/approve", h.employee((*Service).ApproveByEmployee))
	handle("POST /employee/orders/{id}/reject", h.employee((*Service).RejectByEmployee))
	handle("POST /employee/orders/{id}/package", h.employee((*Service).StartShipmentByEmployee))
	handle("GET /shipper/orders", h.HandleShipperQueue)
	handle("POST /shipper/orders/{id}/start", h.shipper((*Service).StartShipmentByShipper))
	handle("POST /shipper/orders/{id}/complete", h.shipper((*Service).CompleteByShipper))
	handle("POST /shipper/orders/{id}/cancel", h.shipper((*Service).CancelByShipper))
	handle("GET /admin/orders", h.HandleAdminQueue)
}

type orderDetailRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type createOrderRequest struct {
	UserID       string               `json:"user_id" validate:"required"`
	AddressID    string               `json:"address_id" validate:"required"`
	Username     string               `json:"username"`
	Payment      domain.Payment       `json:"payment" validate:"omitempty,oneof=Cash Banking"`
	OrderDetails []orderDetailRequest `json:"order_details" validate:"required,min=1,dive"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	details := make([]domain.OrderDetail, len(req.OrderDetails))
	for i, d := range req.OrderDetails {
		details[i] = domain.OrderDetail{ProductID: d.ProductID, Quantity: d.Quantity}
	}

	order, err := h.svc.Create(r.Context(), CreateOrderInput{
		UserID:    req.UserID,
		AddressID: req.AddressID,
		Username:  req.Username,
		Payment:   req.Payment,
		Details:   details,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleGetBanking(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.FindBankingOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleFindAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeList(w, r)(h.svc.FindAll(r.Context(), q.Get("user_id"), q.Get("status")))
}

func (h *Handler) HandleFindAllByUser(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)(h.svc.FindAllByUserID(r.Context(), r.PathValue("userID")))
}

func (h *Handler) HandleFindAllByIDs(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	h.writeList(w, r)(h.svc.FindAllByIDs(r.Context(), ids))
}

func (h *Handler) HandleEmployeeQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeList(w, r)(h.svc.FindAllByEmployee(r.Context(), EmployeeQuery{
		Phone:    q.Get("phone"),
		Status:   q.Get("status"),
		BranchID: q.Get("branch_id"),
	}))
}

func (h *Handler) HandleShipperQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page %q", raw))
			return
		}
		page = n
	}

	h.writeList(w, r)(h.svc.GetOrdersByShipper(r.Context(), ShipperQuery{
		Phone:    q.Get("phone"),
		Status:   q.Get("status"),
		BranchID: q.Get("branch_id"),
		Page:     page,
	}))
}

func (h *Handler) HandleAdminQueue(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)(h.svc.FindAllByAdmin(r.Context(), r.URL.Query().Get("status")))
}

type updateAddressRequest struct {
	AddressID string `json:"address_id" validate:"required"`
}

func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var req updateAddressRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.svc.UpdateAddress(r.Context(), r.PathValue("id"), req.AddressID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type employeeRequest struct {
	Phone    string `json:"phone" validate:"required"`
	BranchID string `json:"branch_id"`
}

func (h *Handler) employee(fn func(*Service, context.Context, EmployeeCommand) (*domain.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req employeeRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.writeOrder(w, r)(fn(h.svc, r.Context(), EmployeeCommand{
			OrderID:  r.PathValue("id"),
			Phone:    req.Phone,
			BranchID: req.BranchID,
		}))
	}
}

type shipperRequest struct {
	Phone string `json:"phone" validate:"required"`
}

func (h *Handler) shipper(fn func(*Service, context.Context, ShipperCommand) (*domain.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req shipperRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.writeOrder(w, r)(fn(h.svc, r.Context(), ShipperCommand{
			OrderID: r.PathValue("id"),
			Phone:   req.Phone,
		}))
	}
}

type customerRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) customer(fn func(*Service, context.Context, CustomerCommand) (*domain.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req customerRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.writeOrder(w, r)(fn(h.svc, r.Context(), CustomerCommand{
			OrderID: r.PathValue("id"),
			UserID:  req.UserID,
		}))
	}
}

func (h *Handler) HandleResell(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.svc.Resell(r.Context(), CustomerCommand{OrderID: r.PathValue("id"), UserID: req.UserID})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

type commentRequest struct {
	ProductID string   `json:"product_id" validate:"required"`
	Star      int      `json:"star" validate:"min=1,max=5"`
	Comment   string   `json:"comment"`
	Username  string   `json:"username" validate:"required"`
	Images    []string `json:"images"`
}

func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.writeOrder(w, r)(h.svc.Comment(r.Context(), CommentInput{
		OrderID:   r.PathValue("id"),
		ProductID: req.ProductID,
		Star:      req.Star,
		Comment:   req.Comment,
		Username:  req.Username,
		Images:    req.Images,
	}))
}

func (h *Handler) HandleMakePayment(w http.ResponseWriter, r *http.Request) {
	h.writeOrder(w, r)(h.svc.MakePayment(r.Context(), r.PathValue("id")))
}

// decode reads and validates a JSON body. It writes the 400 response itself
// and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
			}
			h.writeError(w, http.StatusBadRequest, strings.Join(fields, "; "))
			return false
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request) func(*domain.Order, error) {
	return func(order *domain.Order, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, order)
	}
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request) func([]*domain.Order, error) {
	return func(orders []*domain.Order, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, orders)
	}
}

func statusFor(kind Kind) int {
	switch kind {
	case KindNotFound, KindNoReservation:
		return http.StatusNotFound
	case KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	status := statusFor(kind)

	if status == http.StatusServiceUnavailable {
		h.logger.ErrorContext(r.Context(), "order request failed", "error", err, "route", r.Pattern)
		h.writeError(w, status, "service unavailable")
		return
	}

	h.logger.InfoContext(r.Context(), "order request rejected", "error", err, "kind", kind, "route", r.Pattern)
	h.writeError(w, status, errorMessage(err, kind))
}

// errorMessage picks the client-facing text for err: the sentinel for lookups
// and conflicts, the transition failure, or the validation detail.
func errorMessage(err error, kind Kind) string {
	switch kind {
	case KindNotFound:
		return ErrNotFound.Error()
	case KindNoReservation:
		return ErrNoReservation.Error()
	case KindConflict:
		return ErrConflict.Error()
	case KindInvalidTransition:
		var te *domain.TransitionError
		if errors.As(err, &te) {
			return te.Error()
		}
		return domain.ErrInvalidTransition.Error()
	case KindValidation:
		if errors.Is(err, domain.ErrReservedActorID) {
			return domain.ErrReservedActorID.Error()
		}
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	default:
		return err.Error()
	}
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
