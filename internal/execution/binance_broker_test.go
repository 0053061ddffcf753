package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinanceBrokerCancelOrder(t *testing.T) {
	b := NewBinanceBroker("key", "secret")
	err := b.CancelOrder(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrExecutionFailed)
}

func TestParseQty(t *testing.T) {
	assert.Equal(t, 0.5, parseQty(" 0.5 "))
	assert.Equal(t, 0.0, parseQty("not-a-number"))
	assert.Equal(t, 0.0, parseQty(""))
}
