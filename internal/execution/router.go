package execution

import (
	"context"

	"quantdesk/internal/config"
	"quantdesk/internal/logger"
	"quantdesk/internal/types"
)

// Router dispatches an approved proposal to the paper simulator or the live
// executor. Live trading is honored only in the production environment;
// anywhere else the request is downgraded to a paper fill and the downgrade
// is flagged on the result so it lands in the audit trail.
type Router struct {
	env   string
	paper PaperSimulator
	live  *LiveExecutor
}

func NewRouter(env string, paper PaperSimulator, live *LiveExecutor) *Router {
	return &Router{env: env, paper: paper, live: live}
}

// Execute resolves the execution mode for this request and runs the fill.
func (r *Router) Execute(ctx context.Context, p *types.TradeProposal, requested types.ExecutionMode) types.ExecutionResult {
	mode := requested
	if mode != types.ModeLiveTrading {
		mode = types.ModePaperTrading
	}
	if mode == types.ModeLiveTrading {
		switch {
		case r.env != config.EnvProduction:
			logger.Warnf("live trading requested outside production (env=%s), downgrading to paper for %s", r.env, p.Symbol)
			res := r.paper.Execute(p)
			res.Downgraded = true
			return res
		case r.live == nil:
			logger.Warnf("live trading requested but no broker adapter configured, downgrading to paper for %s", p.Symbol)
			res := r.paper.Execute(p)
			res.Downgraded = true
			return res
		default:
			return r.live.Execute(ctx, p)
		}
	}
	return r.paper.Execute(p)
}
