// Package risk validates trade proposals before execution. No trade reaches
// the execution router without passing through the gate.
package risk

import (
	"fmt"

	"quantdesk/internal/config"
	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

// Rule names recorded on decisions for the audit trail.
const (
	RuleKillSwitch    = "kill_switch"
	RuleFunds         = "insufficient_funds"
	RulePositionLimit = "position_limit"
	RuleConcentration = "concentration_limit"
	RuleEscalation    = "approval_escalation"
)

// Gate applies the ordered risk checks; the first failing check wins.
type Gate struct {
	cfg config.RiskConfig
}

func NewGate(cfg config.RiskConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Review decides a proposal against the portfolio and the current runtime
// state. overrides carries per-strategy threshold settings; zero values fall
// back to the gate's configured defaults.
func (g *Gate) Review(p *types.TradeProposal, pf *types.Portfolio, rt config.RuntimeConfig, overrides strategy.Params) types.RiskDecision {
	// 1. Kill switches block everything regardless of signal quality.
	if rt.KillSwitch || rt.UserHalted(p.UserID) {
		return types.RiskDecision{
			Outcome: types.RiskRejected,
			Reason:  "trading suspended",
			Rule:    RuleKillSwitch,
		}
	}

	// 2. A buy cannot spend more cash than the portfolio holds.
	if p.Action == strategy.ActionBuy && p.EstimatedNotional > pf.CashBalance {
		return types.RiskDecision{
			Outcome:   types.RiskRejected,
			Reason:    "insufficient funds",
			Rule:      RuleFunds,
			Threshold: pf.CashBalance,
			Observed:  p.EstimatedNotional,
		}
	}

	equity := pf.Equity()

	// 3. Single-position cap on the proposal notional itself.
	maxNotional := equity * g.cfg.MaxPositionPct
	if p.Action == strategy.ActionBuy && p.EstimatedNotional > maxNotional {
		return types.RiskDecision{
			Outcome:   types.RiskRejected,
			Reason:    fmt.Sprintf("position limit exceeded (max %.0f%% of equity)", g.cfg.MaxPositionPct*100),
			Rule:      RulePositionLimit,
			Threshold: maxNotional,
			Observed:  p.EstimatedNotional,
		}
	}

	// 4. Resulting per-symbol exposure after the trade.
	if equity > 0 {
		resulting := resultingExposure(p, pf) / equity
		if resulting > g.cfg.ConcentrationPct {
			return types.RiskDecision{
				Outcome:   types.RiskRejected,
				Reason:    fmt.Sprintf("concentration limit (max %.0f%% in %s)", g.cfg.ConcentrationPct*100, p.Symbol),
				Rule:      RuleConcentration,
				Threshold: g.cfg.ConcentrationPct,
				Observed:  resulting,
			}
		}
	}

	// 5. Low-confidence or oversized proposals escalate to a human reviewer
	// instead of being rejected.
	confThreshold := overrides.ConfidenceThreshold
	if confThreshold <= 0 {
		confThreshold = g.cfg.ConfidenceThreshold
	}
	approvalNotional := overrides.ApprovalNotional
	if approvalNotional <= 0 {
		approvalNotional = g.cfg.ApprovalNotional
	}
	if p.Confidence < confThreshold {
		return types.RiskDecision{
			Outcome:   types.RiskPendingApproval,
			Reason:    fmt.Sprintf("confidence %.2f below threshold %.2f", p.Confidence, confThreshold),
			Rule:      RuleEscalation,
			Threshold: confThreshold,
			Observed:  p.Confidence,
		}
	}
	if p.EstimatedNotional > approvalNotional {
		return types.RiskDecision{
			Outcome:   types.RiskPendingApproval,
			Reason:    fmt.Sprintf("notional %.2f above approval threshold %.2f", p.EstimatedNotional, approvalNotional),
			Rule:      RuleEscalation,
			Threshold: approvalNotional,
			Observed:  p.EstimatedNotional,
		}
	}

	return types.RiskDecision{Outcome: types.RiskApproved, Reason: "all checks passed"}
}

// resultingExposure is the symbol's book value after the proposal fills at
// the proposal price.
func resultingExposure(p *types.TradeProposal, pf *types.Portfolio) float64 {
	current := 0.0
	if h, ok := pf.Holding(p.Symbol); ok {
		current = h.Quantity * h.AvgPrice
	}
	if p.Action == strategy.ActionSell {
		remaining := current - p.EstimatedNotional
		if remaining < 0 {
			return 0
		}
		return remaining
	}
	return current + p.EstimatedNotional
}
