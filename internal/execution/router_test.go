package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"quantdesk/internal/config"
	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

func routerProposal() *types.TradeProposal {
	return &types.TradeProposal{
		TraceID:  "t-route",
		Symbol:   "RELIANCE",
		Action:   strategy.ActionBuy,
		Quantity: 5,
		Price:    2400,
	}
}

func TestRouter(t *testing.T) {
	paper := PaperSimulator{SlippageRate: 0.001, CommissionRate: 0.0004}

	t.Run("paper mode uses the simulator", func(t *testing.T) {
		r := NewRouter(config.EnvProduction, paper, nil)
		res := r.Execute(context.Background(), routerProposal(), types.ModePaperTrading)
		assert.Equal(t, types.ModePaperTrading, res.Mode)
		assert.False(t, res.Downgraded)
	})

	t.Run("live outside production downgrades to paper", func(t *testing.T) {
		broker := new(MockBroker)
		live := NewLiveExecutor(broker, LiveConfig{})
		r := NewRouter(config.EnvDevelopment, paper, live)

		res := r.Execute(context.Background(), routerProposal(), types.ModeLiveTrading)
		assert.Equal(t, types.ExecFilled, res.Status)
		assert.Equal(t, types.ModePaperTrading, res.Mode)
		assert.True(t, res.Downgraded)
		broker.AssertNotCalled(t, "PlaceOrder")
	})

	t.Run("live without a broker downgrades to paper", func(t *testing.T) {
		r := NewRouter(config.EnvProduction, paper, nil)
		res := r.Execute(context.Background(), routerProposal(), types.ModeLiveTrading)
		assert.Equal(t, types.ModePaperTrading, res.Mode)
		assert.True(t, res.Downgraded)
	})

	t.Run("live in production reaches the broker", func(t *testing.T) {
		broker := new(MockBroker)
		broker.On("PlaceOrder", mock.Anything, mock.Anything).
			Return(Fill{OrderID: "9", Price: 2401, Quantity: 5}, nil).Once()
		live := NewLiveExecutor(broker, LiveConfig{})
		r := NewRouter(config.EnvProduction, paper, live)

		res := r.Execute(context.Background(), routerProposal(), types.ModeLiveTrading)
		assert.Equal(t, types.ModeLiveTrading, res.Mode)
		assert.False(t, res.Downgraded)
		broker.AssertExpectations(t)
	})

	t.Run("unknown mode falls back to paper", func(t *testing.T) {
		r := NewRouter(config.EnvProduction, paper, nil)
		res := r.Execute(context.Background(), routerProposal(), types.ExecutionMode("YOLO"))
		assert.Equal(t, types.ModePaperTrading, res.Mode)
		assert.False(t, res.Downgraded)
	})
}
