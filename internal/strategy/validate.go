package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Parameter schemas enforced when a strategy is deployed or reconfigured.
// Bad parameters are rejected up front instead of surfacing as HOLDs later.
const baseParamSchema = `{
	"type": "object",
	"properties": {
		"entry_threshold":      {"type": "number", "minimum": 0},
		"exit_threshold":       {"type": "number", "minimum": 0},
		"lookback_period":      {"type": "integer", "minimum": 0},
		"stop_loss_pct":        {"type": "number", "minimum": 0, "maximum": 1},
		"take_profit_pct":      {"type": "number", "minimum": 0, "maximum": 5},
		"position_size_pct":    {"type": "number", "minimum": 0, "maximum": 1},
		"threshold_basis":      {"enum": ["", "absolute", "ma_offset"]},
		"oscillator":           {"enum": ["", "macd", "stochastic"]},
		"option_type":          {"enum": ["", "CALL", "PUT", "call", "put"]},
		"default_action":       {"enum": ["", "BUY", "SELL", "HOLD"]},
		"breakout_margin_pct":  {"type": "number", "minimum": 0},
		"volume_multiple":      {"type": "number", "minimum": 0},
		"confidence_threshold": {"type": "number", "minimum": 0, "maximum": 1},
		"approval_notional":    {"type": "number", "minimum": 0}
	},
	"additionalProperties": false
}`

var requiredByKind = map[Kind][]string{
	KindMeanReversion:  {"entry_threshold", "exit_threshold", "stop_loss_pct", "take_profit_pct"},
	KindTrendFollowing: {"entry_threshold", "exit_threshold", "stop_loss_pct", "take_profit_pct"},
	KindMomentum:       {"stop_loss_pct", "take_profit_pct"},
	KindVolatility:     {"entry_threshold", "option_type", "stop_loss_pct", "take_profit_pct"},
	KindBreakout:       {"stop_loss_pct", "take_profit_pct"},
}

var (
	schemaOnce sync.Once
	schemas    map[Kind]*jsonschema.Schema
	schemaErr  error
)

func compiledSchemas() (map[Kind]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemas = make(map[Kind]*jsonschema.Schema, len(requiredByKind)+1)
		for _, kind := range []Kind{KindMeanReversion, KindTrendFollowing, KindMomentum, KindVolatility, KindBreakout, KindEnsemble} {
			doc := map[string]any{}
			if err := json.Unmarshal([]byte(baseParamSchema), &doc); err != nil {
				schemaErr = err
				return
			}
			if req := requiredByKind[kind]; len(req) > 0 {
				doc["required"] = req
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				schemaErr = err
				return
			}
			compiler := jsonschema.NewCompiler()
			name := fmt.Sprintf("%s.json", kind)
			if err := compiler.AddResource(name, strings.NewReader(string(raw))); err != nil {
				schemaErr = err
				return
			}
			compiled, err := compiler.Compile(name)
			if err != nil {
				schemaErr = err
				return
			}
			schemas[kind] = compiled
		}
	})
	return schemas, schemaErr
}

// ValidateParams checks raw parameter JSON against the schema for the kind.
func ValidateParams(kind Kind, rawParams []byte) error {
	all, err := compiledSchemas()
	if err != nil {
		return fmt.Errorf("parameter schema unavailable: %w", err)
	}
	schema, ok := all[kind]
	if !ok {
		return fmt.Errorf("unknown strategy kind %q", kind)
	}
	var doc any
	if err := json.Unmarshal(rawParams, &doc); err != nil {
		return fmt.Errorf("parameters are not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("parameters rejected for %s: %w", kind, err)
	}
	return nil
}

// ValidateConfig validates a whole deployment, including ensemble members.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("strategy config is nil")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return fmt.Errorf("strategy config missing user id")
	}
	raw, err := json.Marshal(cfg.Params)
	if err != nil {
		return err
	}
	if err := ValidateParams(cfg.Kind, raw); err != nil {
		return err
	}
	if cfg.Kind == KindEnsemble {
		if len(cfg.Members) == 0 {
			return fmt.Errorf("ensemble requires at least one member")
		}
		for i, m := range cfg.Members {
			if m.Kind == KindEnsemble {
				return fmt.Errorf("ensemble member %d: nested ensembles are not allowed", i)
			}
			memberRaw, err := json.Marshal(m.Params)
			if err != nil {
				return err
			}
			if err := ValidateParams(m.Kind, memberRaw); err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
		}
	}
	return nil
}
