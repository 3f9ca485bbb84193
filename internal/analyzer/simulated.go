package analyzer

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"
	"math/rand/v2"
	"sync"

	"copper-backend/internal/risk"
	"copper-backend/internal/shared/telemetry"
)

const (
	minConcentration = 0.1
	maxConcentration = 3.0
	minConfidence    = 0.75
	maxConfidence    = 0.98
	minColorMean     = 100
	maxColorMean     = 200
)

// Simulated is the placeholder analyzer. It decodes only the image header
// and draws every other value uniformly at random.
type Simulated struct {
	Source Source

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated returns a Simulated analyzer reading from src. A nil rng
// uses the process-wide generator.
func NewSimulated(src Source, rng *rand.Rand) *Simulated {
	return &Simulated{Source: src, rng: rng}
}

// Analyze implements Analyzer.
func (s *Simulated) Analyze(ctx context.Context, imagePath string) (Result, error) {
	telemetry.Debug("analyzer.start", map[string]any{"image_path": imagePath})

	width, height, err := s.dimensions(ctx, imagePath)
	if err != nil {
		telemetry.Error("analyzer.failed", map[string]any{"image_path": imagePath, "error": err.Error()})
		return Result{}, &AnalysisError{Path: imagePath, Err: err}
	}

	s.mu.Lock()
	concentration := round2(s.uniform(minConcentration, maxConcentration))
	confidence := round2(s.uniform(minConfidence, maxConfidence))
	color := ColorAnalysis{
		RMean: s.intRange(minColorMean, maxColorMean),
		GMean: s.intRange(minColorMean, maxColorMean),
		BMean: s.intRange(minColorMean, maxColorMean),
	}
	s.mu.Unlock()

	res := Result{
		Concentration: concentration,
		RiskLevel:     risk.Classify(concentration),
		Details: Details{
			ImageDimensions:      fmt.Sprintf("%dx%d", width, height),
			ConcentrationUnit:    Unit,
			PredictionConfidence: confidence,
			ColorAnalysis:        color,
			SafeThreshold:        SafeThreshold,
			WarningThreshold:     WarningThreshold,
			DangerThreshold:      DangerThreshold,
		},
	}

	telemetry.Debug("analyzer.complete", map[string]any{
		"image_path":    imagePath,
		"concentration": res.Concentration,
		"risk_level":    res.RiskLevel,
	})
	return res, nil
}

func (s *Simulated) dimensions(ctx context.Context, imagePath string) (int, int, error) {
	if s.Source == nil {
		return 0, 0, fmt.Errorf("image source not configured")
	}
	rc, err := s.Source.Open(ctx, imagePath)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func (s *Simulated) uniform(lo, hi float64) float64 {
	var f float64
	if s.rng != nil {
		f = s.rng.Float64()
	} else {
		f = rand.Float64()
	}
	return lo + f*(hi-lo)
}

// intRange draws from [lo, hi], both ends inclusive.
func (s *Simulated) intRange(lo, hi int) int {
	if s.rng != nil {
		return lo + s.rng.IntN(hi-lo+1)
	}
	return lo + rand.IntN(hi-lo+1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var _ Analyzer = (*Simulated)(nil)
