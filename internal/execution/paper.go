package execution

import (
	"time"

	"github.com/shopspring/decimal"

	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

// PaperSimulator fills immediately at the proposal price adjusted by the
// configured slippage, and charges the configured commission. It never
// touches a real broker.
type PaperSimulator struct {
	SlippageRate   float64
	CommissionRate float64
}

// Execute simulates a fill. It only fails for non-positive quantities.
func (s PaperSimulator) Execute(p *types.TradeProposal) types.ExecutionResult {
	if p == nil || p.Quantity <= 0 {
		return types.ExecutionResult{
			Status: types.ExecFailed,
			Mode:   types.ModePaperTrading,
			Error:  "nothing to fill",
		}
	}
	price := decimal.NewFromFloat(p.Price)
	slip := decimal.NewFromFloat(s.SlippageRate)
	one := decimal.NewFromInt(1)
	// Slippage always works against the trader.
	if p.Action == strategy.ActionSell {
		price = price.Mul(one.Sub(slip))
	} else {
		price = price.Mul(one.Add(slip))
	}
	qty := decimal.NewFromFloat(p.Quantity)
	notional := price.Mul(qty)
	commission := notional.Mul(decimal.NewFromFloat(s.CommissionRate))

	filledPrice, _ := price.Float64()
	fee, _ := commission.Float64()
	return types.ExecutionResult{
		Status:         types.ExecFilled,
		Mode:           types.ModePaperTrading,
		FilledPrice:    filledPrice,
		FilledQuantity: p.Quantity,
		Commission:     fee,
		Children: []types.ChildFill{
			{Price: filledPrice, Quantity: p.Quantity, FilledAt: time.Now()},
		},
	}
}
