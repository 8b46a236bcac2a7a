package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

type Writer interface {
	UpsertProduct(ctx context.Context, p domain.Product) error
	UpsertAddress(ctx context.Context, a domain.Address) error
}

// EventHandler applies catalog replication events from the owning services.
type EventHandler struct {
	writer Writer
	logger *slog.Logger
}

func NewEventHandler(writer Writer, logger *slog.Logger) *EventHandler {
	return &EventHandler{writer: writer, logger: logger}
}

func (h *EventHandler) HandleProductCreated(ctx context.Context, payload []byte) error {
	var p domain.Product
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("unmarshal product event: %w", err)
	}
	if p.ID == "" {
		return errors.New("product event without id")
	}

	if err := h.writer.UpsertProduct(ctx, p); err != nil {
		return err
	}
	h.logger.Info("product replicated", "product_id", p.ID, "slug", p.Slug)
	return nil
}

func (h *EventHandler) HandleAddressCreated(ctx context.Context, payload []byte) error {
	var a domain.Address
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("unmarshal address event: %w", err)
	}
	if a.ID == "" || a.Phone == "" {
		return errors.New("address event without id or phone")
	}

	if err := h.writer.UpsertAddress(ctx, a); err != nil {
		return err
	}
	h.logger.Info("address replicated", "address_id", a.ID)
	return nil
}
