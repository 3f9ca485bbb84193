package samples

import (
	"encoding/json"
	"io"
	"time"

	"copper-backend/internal/analyzer"
	"copper-backend/internal/risk"
)

// Record is one persisted sample analysis. Records are immutable once
// created.
type Record struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	CreatedAt     time.Time       `json:"created_at"`
	ImagePath     string          `json:"image_path"`
	Concentration float64         `json:"copper_concentration"`
	RiskLevel     risk.Level      `json:"risk_level"`
	Details       json.RawMessage `json:"analysis_data"`
	Quality
}

// Quality holds optional water-quality measurements. A nil field is unset.
type Quality struct {
	Location        *string  `json:"location" binding:"omitempty,max=255"`
	PH              *float64 `json:"ph" binding:"omitempty,gte=0,lte=14"`
	Hardness        *float64 `json:"hardness" binding:"omitempty,gte=0"`
	Solids          *float64 `json:"solids" binding:"omitempty,gte=0"`
	Chloramines     *float64 `json:"chloramines" binding:"omitempty,gte=0"`
	Sulfate         *float64 `json:"sulfate" binding:"omitempty,gte=0"`
	Conductivity    *float64 `json:"conductivity" binding:"omitempty,gte=0"`
	OrganicCarbon   *float64 `json:"organic_carbon" binding:"omitempty,gte=0"`
	Trihalomethanes *float64 `json:"trihalomethanes" binding:"omitempty,gte=0"`
	Turbidity       *float64 `json:"turbidity" binding:"omitempty,gte=0"`
	Drinkable       *bool    `json:"drinkable"`
}

// DecodedDetails parses the stored details payload. Missing or malformed
// payloads yield the zero value and false.
func (r Record) DecodedDetails() (analyzer.Details, bool) {
	var d analyzer.Details
	if len(r.Details) == 0 {
		return d, false
	}
	if err := json.Unmarshal(r.Details, &d); err != nil {
		return analyzer.Details{}, false
	}
	return d, true
}

// RiskColor is the UI badge class for the record's risk level.
func (r Record) RiskColor() string {
	return r.RiskLevel.Badge()
}

// FormattedTimestamp renders CreatedAt for display, e.g. "Mar 04, 2026 at 09:15".
func (r Record) FormattedTimestamp() string {
	return r.CreatedAt.Format("Jan 02, 2006 at 15:04")
}

// Upload is an image submitted for analysis.
type Upload struct {
	FileName string
	Body     io.Reader
	Quality  Quality
}
