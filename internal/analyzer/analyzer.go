// Package analyzer turns a stored water-sample image into a copper reading.
//
// The only implementation today is Simulated, a placeholder that reads the
// image dimensions and draws the reading at random. A trained model can be
// dropped in behind the Analyzer interface without touching callers.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"copper-backend/internal/risk"
)

// Unit is the concentration unit reported in every result.
const Unit = "mg/L"

// Thresholds reported in Details. These are the headline cutoffs shown to
// users and deliberately differ from the five-band table in package risk.
const (
	SafeThreshold    = 1.0
	WarningThreshold = 1.3
	DangerThreshold  = 2.0
)

// Analyzer produces a reading for the image stored under imagePath.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (Result, error)
}

// Source opens stored images for reading.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Result is the outcome of one analysis.
type Result struct {
	Concentration float64    `json:"concentration"`
	RiskLevel     risk.Level `json:"risk_level"`
	Details       Details    `json:"details"`
}

// Details is the auxiliary payload stored alongside a reading.
type Details struct {
	ImageDimensions      string        `json:"image_dimensions"`
	ConcentrationUnit    string        `json:"concentration_unit"`
	PredictionConfidence float64       `json:"prediction_confidence"`
	ColorAnalysis        ColorAnalysis `json:"color_analysis"`
	SafeThreshold        float64       `json:"safe_threshold"`
	WarningThreshold     float64       `json:"warning_threshold"`
	DangerThreshold      float64       `json:"danger_threshold"`
}

// ColorAnalysis holds per-channel means.
type ColorAnalysis struct {
	RMean int `json:"r_mean"`
	GMean int `json:"g_mean"`
	BMean int `json:"b_mean"`
}

// AnalysisError reports a failed analysis. Callers must not persist a
// record when they receive one.
type AnalysisError struct {
	Path string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("failed to analyze image: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// FileSource opens keys as plain filesystem paths, optionally under Root.
type FileSource struct {
	Root string
}

// Open implements Source.
func (s FileSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := key
	if s.Root != "" {
		path = filepath.Join(s.Root, key)
	}
	return os.Open(path)
}
