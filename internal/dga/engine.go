package dga

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/moolen/faultlens/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Weights are the fusion weights of the three methods.
type Weights struct {
	ThreeRatio float64 `json:"three_ratio" yaml:"three_ratio" koanf:"three_ratio"`
	DPM        float64 `json:"dpm" yaml:"dpm" koanf:"dpm"`
	PRPD       float64 `json:"prpd" yaml:"prpd" koanf:"prpd"`
}

// DefaultWeights favours the gas ratios over the categorical methods.
func DefaultWeights() Weights {
	return Weights{ThreeRatio: 0.4, DPM: 0.35, PRPD: 0.25}
}

// Validate rejects negative weights and an all-zero set.
func (w Weights) Validate() error {
	if w.ThreeRatio < 0 || w.DPM < 0 || w.PRPD < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if w.ThreeRatio+w.DPM+w.PRPD == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	return nil
}

// EngineConfig is the hot-swappable part of the engine.
type EngineConfig struct {
	Thresholds RatioThresholds
	Weights    Weights
}

// Engine runs all applicable methods on one sample and fuses them.
type Engine struct {
	cfg         atomic.Pointer[EngineConfig]
	decider     *DecisionMaker
	concurrency int
	logger      *logging.Logger
}

// NewEngine creates an engine. concurrency bounds DiagnoseBatch; values
// below 1 mean unbounded.
func NewEngine(cfg EngineConfig, concurrency int) *Engine {
	e := &Engine{
		decider:     NewDecisionMaker(),
		concurrency: concurrency,
		logger:      logging.GetLogger("dga.engine"),
	}
	e.cfg.Store(&cfg)
	return e
}

// Config returns the active configuration.
func (e *Engine) Config() EngineConfig {
	return *e.cfg.Load()
}

// Reconfigure swaps thresholds and weights. In-flight diagnoses keep the
// configuration they started with.
func (e *Engine) Reconfigure(cfg EngineConfig) error {
	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}
	if err := cfg.Weights.Validate(); err != nil {
		return err
	}
	e.cfg.Store(&cfg)
	e.logger.InfoWithFields("engine reconfigured",
		logging.Field("weight_three_ratio", cfg.Weights.ThreeRatio),
		logging.Field("weight_dpm", cfg.Weights.DPM),
		logging.Field("weight_prpd", cfg.Weights.PRPD))
	return nil
}

// Diagnose fuses the three-ratio finding with the DPM and PRPD findings when
// p carries those features. Consistency is only checked when all three are
// present.
func (e *Engine) Diagnose(p Params) Result {
	cfg := e.cfg.Load()

	threeRatio := NewThreeRatioAnalyzer(cfg.Thresholds).Analyze(p)
	items := []Weighted{{Finding: threeRatio, Weight: cfg.Weights.ThreeRatio}}

	var dpm, prpd *Finding
	if p.DPMResult != "" {
		f := AnalyzeDPM(p.DPMResult)
		dpm = &f
		items = append(items, Weighted{Finding: f, Weight: cfg.Weights.DPM})
	}
	if p.PRPDFeature != "" {
		f := AnalyzePRPD(p.PRPDFeature)
		prpd = &f
		items = append(items, Weighted{Finding: f, Weight: cfg.Weights.PRPD})
	}

	res := e.decider.Fuse(items)
	res.TransformerID = p.TransformerID
	if dpm != nil && prpd != nil {
		c := ValidateConsistency(threeRatio, *dpm, *prpd)
		res.Consistency = &c
		if !c.Consistent {
			e.logger.DebugWithFields("methods disagree",
				logging.Field("transformer_id", p.TransformerID),
				logging.Field("conflicts", len(c.Conflicts)))
		}
	}
	return res
}

// DiagnoseBatch diagnoses every sample concurrently. Results keep the input
// order. The context only stops scheduling of samples not yet started.
func (e *Engine) DiagnoseBatch(ctx context.Context, params []Params) ([]Result, error) {
	results := make([]Result, len(params))
	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i := range params {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Diagnose(params[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
