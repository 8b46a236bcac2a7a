package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSearchPath(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "url",
			dsn:  "postgres://orderflow:secret@db:5432/orderflow?sslmode=disable",
			want: "postgres://orderflow:secret@db:5432/orderflow?search_path=orders&sslmode=disable",
		},
		{
			name: "key value",
			dsn:  "host=db user=orderflow sslmode=disable",
			want: "host=db user=orderflow sslmode=disable search_path=orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := withSearchPath(tt.dsn, "orders")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
