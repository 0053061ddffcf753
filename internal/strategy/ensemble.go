package strategy

import (
	"fmt"
	"strings"

	"quantdesk/internal/market"
)

// Ensemble runs its configured members and aggregates their signals by
// confidence-weighted voting. Members are held by value in the config; the
// member set is the fixed non-ensemble kinds.
type Ensemble struct{}

func (Ensemble) Kind() Kind { return KindEnsemble }

func (Ensemble) Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal {
	if len(cfg.Members) == 0 {
		return holdSignal(cfg, snap.Symbol, "ensemble has no members")
	}
	votes := map[Action]float64{}
	totalWeight := 0.0
	weightedConf := 0.0
	rationales := make([]string, 0, len(cfg.Members))
	for _, m := range cfg.Members {
		if m.Kind == KindEnsemble {
			// nesting ensembles is not supported
			continue
		}
		eval, err := ForKind(m.Kind)
		if err != nil {
			continue
		}
		weight := m.Weight
		if weight <= 0 {
			weight = 1
		}
		memberCfg := &Config{
			ID:     cfg.ID,
			UserID: cfg.UserID,
			Kind:   m.Kind,
			Symbol: cfg.Symbol,
			Params: m.Params,
		}
		sig := eval.Evaluate(snap, memberCfg)
		votes[sig.Action] += weight * sig.Confidence
		totalWeight += weight
		weightedConf += weight * sig.Confidence
		rationales = append(rationales, fmt.Sprintf("%s→%s(%.2f)", m.Kind, sig.Action, sig.Confidence))
	}
	if totalWeight == 0 {
		return holdSignal(cfg, snap.Symbol, "ensemble produced no votes")
	}
	winner, tie := leadingAction(votes)
	if tie {
		winner = tieAction(cfg.Params.DefaultAction)
	}
	return Signal{
		StrategyID: cfg.ID,
		Symbol:     snap.Symbol,
		Action:     winner,
		Confidence: clamp01(weightedConf / totalWeight),
		Rationale:  "ensemble vote: " + strings.Join(rationales, ", "),
	}
}

// tieAction resolves a tied vote to the configured default action, HOLD when
// none is set.
func tieAction(configured string) Action {
	switch Action(strings.ToUpper(configured)) {
	case ActionBuy:
		return ActionBuy
	case ActionSell:
		return ActionSell
	default:
		return ActionHold
	}
}

// leadingAction picks the action with the highest weighted vote. The second
// return reports a tie between distinct actions.
func leadingAction(votes map[Action]float64) (Action, bool) {
	best := ActionHold
	bestScore := -1.0
	tie := false
	for _, action := range []Action{ActionBuy, ActionSell, ActionHold} {
		score, ok := votes[action]
		if !ok {
			continue
		}
		switch {
		case score > bestScore:
			best = action
			bestScore = score
			tie = false
		case score == bestScore:
			tie = true
		}
	}
	return best, tie
}
