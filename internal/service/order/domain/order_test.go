package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name      string
		succeeded int
		failed    int
		want      OrderStatus
	}{
		{"all succeeded", 3, 0, StatusCompleted},
		{"all failed", 0, 3, StatusFailed},
		{"mixed", 2, 1, StatusPartial},
		{"single success", 1, 0, StatusCompleted},
		{"single failure", 0, 1, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateStatus(tt.succeeded, tt.failed))
		})
	}
}
