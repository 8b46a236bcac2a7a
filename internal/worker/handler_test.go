package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/orderflow-lifecycle/internal/domain"
	"github.com/joao-fontenele/orderflow-lifecycle/internal/orders"
)

type fakeEngine struct {
	calls    []string
	comments []orders.CommentInput
	err      error
}

func (e *fakeEngine) record(op, id string) (*domain.Order, error) {
	e.calls = append(e.calls, op+":"+id)
	if e.err != nil {
		return nil, e.err
	}
	return &domain.Order{ID: id, Status: domain.OrderStatusApproved}, nil
}

func (e *fakeEngine) ApproveByBot(_ context.Context, id string) (*domain.Order, error) {
	return e.record("approve", id)
}

func (e *fakeEngine) CancelByBot(_ context.Context, id string) (*domain.Order, error) {
	return e.record("cancel", id)
}

func (e *fakeEngine) MakePayment(_ context.Context, id string) (*domain.Order, error) {
	return e.record("pay", id)
}

func (e *fakeEngine) Comment(_ context.Context, in orders.CommentInput) (*domain.Order, error) {
	e.comments = append(e.comments, in)
	return e.record("comment", in.OrderID)
}

func newTestHandler(engine Engine) *EventHandler {
	return NewEventHandler(engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOrderIDPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"json string", `"o-1"`, "o-1", false},
		{"object with order_id", `{"order_id":"o-2"}`, "o-2", false},
		{"object with id", `{"id":"o-3"}`, "o-3", false},
		{"raw bytes", "o-4\n", "o-4", false},
		{"empty", "  ", "", true},
		{"empty string", `""`, "", true},
		{"object without id", `{"status":"x"}`, "", true},
		{"malformed object", `{"order_id":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderID([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandlersRouteToEngine(t *testing.T) {
	engine := &fakeEngine{}
	h := newTestHandler(engine)
	ctx := context.Background()

	require.NoError(t, h.HandlePackaged(ctx, []byte(`"o-1"`)))
	require.NoError(t, h.HandleCancelled(ctx, []byte(`{"order_id":"o-2"}`)))
	require.NoError(t, h.HandleMakePayment(ctx, []byte(`o-3`)))
	require.NoError(t, h.HandleCommented(ctx, []byte(`{"order_id":"o-4","product_id":"p-1","star":5,"username":"alice"}`)))

	assert.Equal(t, []string{"approve:o-1", "cancel:o-2", "pay:o-3", "comment:o-4"}, engine.calls)
	require.Len(t, engine.comments, 1)
	assert.Equal(t, 5, engine.comments[0].Star)
	assert.Equal(t, "alice", engine.comments[0].Username)
}

func TestHandlerErrorsCarryEngineKind(t *testing.T) {
	engine := &fakeEngine{err: &domain.TransitionError{Op: domain.OpBotCancel, From: domain.OrderStatusStarted}}
	h := newTestHandler(engine)

	err := h.HandleCancelled(context.Background(), []byte(`"o-1"`))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, orders.KindInvalidTransition, orders.KindOf(err))

	require.Error(t, h.HandleCommented(context.Background(), []byte(`not json`)))
}
