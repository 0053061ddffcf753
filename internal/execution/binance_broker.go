package execution

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// BinanceBroker places spot market orders through the Binance REST API.
type BinanceBroker struct {
	client *binance.Client
}

func NewBinanceBroker(apiKey, secretKey string) *BinanceBroker {
	return &BinanceBroker{client: binance.NewClient(apiKey, secretKey)}
}

func (b *BinanceBroker) PlaceOrder(ctx context.Context, order Order) (Fill, error) {
	symbol := strings.ReplaceAll(strings.ToUpper(order.Symbol), "/", "")
	qty := decimal.NewFromFloat(order.Quantity).String()
	res, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(order.Side)).
		Type(binance.OrderTypeMarket).
		Quantity(qty).
		Do(ctx)
	if err != nil {
		return Fill{}, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	filledQty := parseQty(res.ExecutedQuantity)
	if filledQty <= 0 {
		return Fill{}, fmt.Errorf("%w: order %d not filled", ErrExecutionFailed, res.OrderID)
	}
	// Market fills report the average price through the cumulative quote
	// quantity; per-fill breakdown is not needed upstream.
	avgPrice := parseQty(res.CummulativeQuoteQuantity) / filledQty
	if avgPrice <= 0 {
		avgPrice = order.Price
	}
	return Fill{
		OrderID:  strconv.FormatInt(res.OrderID, 10),
		Price:    avgPrice,
		Quantity: filledQty,
	}, nil
}

// CancelOrder is not supported: this adapter only places market orders,
// which fill or reject immediately. Callers get an explicit error instead
// of a silent success.
func (b *BinanceBroker) CancelOrder(ctx context.Context, orderID string) error {
	return fmt.Errorf("%w: market orders cannot be cancelled", ErrExecutionFailed)
}

func parseQty(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
