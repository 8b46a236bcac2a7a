// Package worker applies inbound order events to the lifecycle engine.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/orders"
)

// Engine is the slice of the orders service driven by events.
type Engine interface {
	ApproveByBot(ctx context.Context, id string) (*domain.Order, error)
	CancelByBot(ctx context.Context, id string) (*domain.Order, error)
	Comment(ctx context.Context, in orders.CommentInput) (*domain.Order, error)
	MakePayment(ctx context.Context, id string) (*domain.Order, error)
}

type EventHandler struct {
	engine Engine
	logger *slog.Logger
}

func NewEventHandler(engine Engine, logger *slog.Logger) *EventHandler {
	return &EventHandler{engine: engine, logger: logger}
}

// HandlePackaged approves the order on behalf of the packaging pipeline.
func (h *EventHandler) HandlePackaged(ctx context.Context, payload []byte) error {
	return h.byID(ctx, "packaged", payload, h.engine.ApproveByBot)
}

func (h *EventHandler) HandleCancelled(ctx context.Context, payload []byte) error {
	return h.byID(ctx, "cancelled", payload, h.engine.CancelByBot)
}

func (h *EventHandler) HandleMakePayment(ctx context.Context, payload []byte) error {
	return h.byID(ctx, "makepayment", payload, h.engine.MakePayment)
}

type commentEvent struct {
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id"`
	Star      int      `json:"star"`
	Comment   string   `json:"comment"`
	Username  string   `json:"username"`
	Images    []string `json:"images"`
}

func (h *EventHandler) HandleCommented(ctx context.Context, payload []byte) error {
	var event commentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal comment event: %w", err)
	}

	order, err := h.engine.Comment(ctx, orders.CommentInput{
		OrderID:   event.OrderID,
		ProductID: event.ProductID,
		Star:      event.Star,
		Comment:   event.Comment,
		Username:  event.Username,
		Images:    event.Images,
	})
	if err != nil {
		return fmt.Errorf("comment order %s: %w", event.OrderID, err)
	}

	h.logger.Info("order commented", "order_id", order.ID, "product_id", event.ProductID)
	return nil
}

func (h *EventHandler) byID(ctx context.Context, event string, payload []byte, apply func(context.Context, string) (*domain.Order, error)) error {
	id, err := orderID(payload)
	if err != nil {
		return fmt.Errorf("decode %s event: %w", event, err)
	}

	order, err := apply(ctx, id)
	if err != nil {
		return fmt.Errorf("%s order %s: %w", event, id, err)
	}

	h.logger.Info("order event applied", "event", event, "order_id", order.ID, "status", order.Status)
	return nil
}

// orderID accepts a JSON string, an object with order_id (or id), or the
// bare id bytes.
func orderID(payload []byte) (string, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return "", errors.New("empty payload")
	}

	switch payload[0] {
	case '"':
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return "", err
		}
		return nonEmpty(id)
	case '{':
		var body struct {
			OrderID string `json:"order_id"`
			ID      string `json:"id"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", err
		}
		if body.OrderID != "" {
			return body.OrderID, nil
		}
		return nonEmpty(body.ID)
	default:
		return string(payload), nil
	}
}

func nonEmpty(id string) (string, error) {
	if id == "" {
		return "", errors.New("missing order id")
	}
	return id, nil
}
