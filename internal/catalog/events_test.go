package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
)

type fakeWriter struct {
	products  []domain.Product
	addresses []domain.Address
	err       error
}

func (w *fakeWriter) UpsertProduct(_ context.Context, p domain.Product) error {
	if w.err != nil {
		return w.err
	}
	w.products = append(w.products, p)
	return nil
}

func (w *fakeWriter) UpsertAddress(_ context.Context, a domain.Address) error {
	if w.err != nil {
		return w.err
	}
	w.addresses = append(w.addresses, a)
	return nil
}

func newTestHandler(w Writer) *EventHandler {
	return NewEventHandler(w, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleProductCreated(t *testing.T) {
	w := &fakeWriter{}
	h := newTestHandler(w)

	payload := `{"id":"p-1","name":"Iphone 14","price":25000000,"slug":"iphone-14","image":"i.png","sale":10}`
	require.NoError(t, h.HandleProductCreated(context.Background(), []byte(payload)))

	require.Len(t, w.products, 1)
	p := w.products[0]
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, int64(25000000), p.Price)
	assert.Equal(t, "iphone-14", p.Slug)
	require.NotNil(t, p.Sale)
	assert.Equal(t, int64(10), *p.Sale)
}

func TestHandleProductCreatedRejectsBadPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed", `{"id":`},
		{"missing id", `{"name":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			err := newTestHandler(w).HandleProductCreated(context.Background(), []byte(tt.payload))
			require.Error(t, err)
			assert.Empty(t, w.products)
		})
	}
}

func TestHandleAddressCreated(t *testing.T) {
	w := &fakeWriter{}
	h := newTestHandler(w)

	payload := `{"id":"a-1","phone":"0868738097","name":"Alice","street":"12 Le Loi","ward":"Ben Nghe","district":"1","city":"HCM"}`
	require.NoError(t, h.HandleAddressCreated(context.Background(), []byte(payload)))
	require.Len(t, w.addresses, 1)
	assert.Equal(t, "0868738097", w.addresses[0].Phone)

	require.Error(t, h.HandleAddressCreated(context.Background(), []byte(`{"id":"a-2"}`)))

	w.err = errors.New("db down")
	require.ErrorContains(t, h.HandleAddressCreated(context.Background(), []byte(payload)), "db down")
}
