package samples

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"copper-backend/internal/analyzer"
	"copper-backend/internal/shared/config"
	"copper-backend/internal/shared/metrics"
	"copper-backend/internal/shared/server/flash"
	"copper-backend/internal/shared/server/middleware"
	"copper-backend/internal/shared/server/respond"
	"copper-backend/internal/shared/telemetry"
	"copper-backend/internal/shared/util"
)

const dashboardDateLayout = "2006-01-02 15:04:05"

type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = config.DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches the record routes. rg must already require
// login; limit, when non-nil, guards uploads.
func (h *Handler) RegisterRoutes(rg gin.IRouter, limit gin.HandlerFunc) {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	rg.GET("/dashboard", h.dashboard)
	rg.GET("/analyze", h.analyzePage)
	rg.POST("/analyze", limit, h.analyze)
	rg.GET("/result/:id", h.result)
	rg.GET("/result/:id/image", h.image)
}

type recordView struct {
	ID                  int64   `json:"id"`
	Date                string  `json:"date"`
	FormattedTimestamp  string  `json:"formatted_timestamp"`
	ImagePath           string  `json:"image_path"`
	ImageURL            string  `json:"image_url"`
	CopperConcentration float64 `json:"copper_concentration"`
	RiskLevel           string  `json:"risk_level"`
	RiskColor           string  `json:"risk_color"`
	AnalysisData        any     `json:"analysis_data"`
	Quality
}

func newRecordView(rec Record) recordView {
	var data any
	if d, ok := rec.DecodedDetails(); ok {
		data = d
	}
	return recordView{
		ID:                  rec.ID,
		Date:                rec.CreatedAt.Format(dashboardDateLayout),
		FormattedTimestamp:  rec.FormattedTimestamp(),
		ImagePath:           rec.ImagePath,
		ImageURL:            fmt.Sprintf("/result/%d/image", rec.ID),
		CopperConcentration: rec.Concentration,
		RiskLevel:           string(rec.RiskLevel),
		RiskColor:           rec.RiskColor(),
		AnalysisData:        data,
		Quality:             rec.Quality,
	}
}

func (h *Handler) dashboard(c *gin.Context) {
	ownerID, _ := middleware.AccountIDFromContext(c)
	recs, err := h.Svc.Dashboard(c.Request.Context(), ownerID)
	if err != nil {
		telemetry.Error("dashboard.load_failed", map[string]any{
			"user_id": ownerID,
			"error":   err.Error(),
		})
		flash.Add(c, flash.Danger, "An error occurred while loading the dashboard data.")
		recs = []Record{}
	}
	views := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, newRecordView(rec))
	}
	respond.View(c, http.StatusOK, "Dashboard", gin.H{
		"analyses": views,
		"count":    len(views),
		"summary":  summarize(recs),
	})
}

func (h *Handler) analyzePage(c *gin.Context) {
	respond.View(c, http.StatusOK, "New Analysis", gin.H{
		"allowed_extensions": AllowedExtensions,
		"max_upload_bytes":   h.MaxUploadBytes,
	})
}

func (h *Handler) analyze(c *gin.Context) {
	ownerID, _ := middleware.AccountIDFromContext(c)
	if c.Request.ContentLength > h.MaxUploadBytes {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.tooLarge(c)
		case errors.Is(err, http.ErrMissingFile):
			metrics.IncUploadRejected()
			h.invalidUpload(c, flash.Warning, "No file selected. Please upload an image.")
		default:
			h.invalidUpload(c, flash.Danger, "The upload could not be read. Please try again.")
		}
		return
	}
	if fh.Filename == "" {
		metrics.IncUploadRejected()
		h.invalidUpload(c, flash.Warning, "No file selected. Please upload an image.")
		return
	}
	if !AllowedFile(fh.Filename) {
		metrics.IncUploadRejected()
		h.invalidUpload(c, flash.Danger, "Invalid file type. Please upload a JPG, JPEG, or PNG image.")
		return
	}

	quality, fieldErrs := parseQuality(c)
	if len(fieldErrs) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Please correct the errors below.", gin.H{
			"fields": fieldErrs,
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.invalidUpload(c, flash.Danger, "The upload could not be read. Please try again.")
		return
	}
	defer f.Close()

	rec, err := h.Svc.Submit(c.Request.Context(), ownerID, Upload{
		FileName: fh.Filename,
		Body:     f,
		Quality:  quality,
	})
	if err != nil {
		h.submitFailed(c, err)
		return
	}
	c.Set(middleware.AnalysisIDKey, rec.ID)
	respond.Redirect(c, fmt.Sprintf("/result/%d", rec.ID), flash.Success, "Analysis successful!")
}

func (h *Handler) submitFailed(c *gin.Context, err error) {
	var ae *analyzer.AnalysisError
	var se *StorageError
	switch {
	case errors.Is(err, ErrNoFile):
		h.invalidUpload(c, flash.Warning, "No file selected. Please upload an image.")
	case errors.Is(err, ErrInvalidUpload):
		h.invalidUpload(c, flash.Danger, "Invalid file type. Please upload a JPG, JPEG, or PNG image.")
	case errors.As(err, &ae):
		flash.Add(c, flash.Danger, "An error occurred during analysis. Please try again. Error: "+ae.Error())
		respond.Error(c, http.StatusUnprocessableEntity, "analysis_failed", ae.Error(), nil)
	case errors.As(err, &se):
		flash.Add(c, flash.Danger, "An error occurred while saving the analysis. Please try again.")
		respond.Error(c, http.StatusInternalServerError, "storage_error", "The analysis could not be saved.", nil)
	default:
		flash.Add(c, flash.Danger, "An error occurred during analysis. Please try again.")
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	}
}

func (h *Handler) invalidUpload(c *gin.Context, category, message string) {
	flash.Add(c, category, message)
	respond.Error(c, http.StatusBadRequest, "validation_error", message, gin.H{
		"fields": gin.H{"image": message},
	})
}

func (h *Handler) tooLarge(c *gin.Context) {
	metrics.IncUploadRejected()
	message := fmt.Sprintf("File is too large. The limit is %d MiB.", h.MaxUploadBytes>>20)
	flash.Add(c, flash.Danger, message)
	respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", message, nil)
}

func (h *Handler) result(c *gin.Context) {
	requesterID, _ := middleware.AccountIDFromContext(c)
	id, ok := parseID(c)
	if !ok {
		respond.Redirect(c, "/dashboard", flash.Warning, fmt.Sprintf("Analysis with ID %s not found.", c.Param("id")))
		return
	}
	c.Set(middleware.AnalysisIDKey, id)

	rec, err := h.Svc.Get(c.Request.Context(), requesterID, id)
	if err != nil {
		h.lookupFailed(c, id, err)
		return
	}
	view := newRecordView(rec)
	respond.View(c, http.StatusOK, "Analysis Result", gin.H{
		"analysis": view,
	})
}

func (h *Handler) image(c *gin.Context) {
	requesterID, _ := middleware.AccountIDFromContext(c)
	id, ok := parseID(c)
	if !ok {
		respond.Redirect(c, "/dashboard", flash.Warning, fmt.Sprintf("Analysis with ID %s not found.", c.Param("id")))
		return
	}
	c.Set(middleware.AnalysisIDKey, id)

	rc, rec, err := h.Svc.OpenImage(c.Request.Context(), requesterID, id)
	if err != nil {
		if errors.Is(err, ErrImageMissing) {
			respond.Error(c, http.StatusNotFound, "not_found", "image not available", nil)
			return
		}
		h.lookupFailed(c, id, err)
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, -1, contentTypeFor(rec.ImagePath), rc, nil)
}

func (h *Handler) lookupFailed(c *gin.Context, id int64, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Redirect(c, "/dashboard", flash.Warning, fmt.Sprintf("Analysis with ID %d not found.", id))
	case errors.Is(err, ErrForbidden):
		respond.Redirect(c, "/dashboard", flash.Danger, "You are not authorized to view this analysis result.")
	default:
		telemetry.Error("analysis.load_failed", map[string]any{
			"analysis_id": id,
			"error":       err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analysis", nil)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func contentTypeFor(key string) string {
	switch util.Extension(key) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

var qualityFloatFields = []struct {
	name string
	set  func(*Quality, *float64)
}{
	{"ph", func(q *Quality, v *float64) { q.PH = v }},
	{"hardness", func(q *Quality, v *float64) { q.Hardness = v }},
	{"solids", func(q *Quality, v *float64) { q.Solids = v }},
	{"chloramines", func(q *Quality, v *float64) { q.Chloramines = v }},
	{"sulfate", func(q *Quality, v *float64) { q.Sulfate = v }},
	{"conductivity", func(q *Quality, v *float64) { q.Conductivity = v }},
	{"organic_carbon", func(q *Quality, v *float64) { q.OrganicCarbon = v }},
	{"trihalomethanes", func(q *Quality, v *float64) { q.Trihalomethanes = v }},
	{"turbidity", func(q *Quality, v *float64) { q.Turbidity = v }},
}

// parseQuality reads the optional measurement fields. Blank fields stay
// unset; the rest must parse and pass the range checks on Quality.
func parseQuality(c *gin.Context) (Quality, map[string]string) {
	var q Quality
	fieldErrs := map[string]string{}

	if loc := strings.TrimSpace(c.PostForm("location")); loc != "" {
		q.Location = &loc
	}
	for _, f := range qualityFloatFields {
		raw := strings.TrimSpace(c.PostForm(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			fieldErrs[f.name] = "Not a valid number."
			continue
		}
		f.set(&q, &v)
	}
	if raw := strings.TrimSpace(c.PostForm("drinkable")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fieldErrs["drinkable"] = "Not a valid choice."
		} else {
			q.Drinkable = &v
		}
	}
	if len(fieldErrs) > 0 {
		return Quality{}, fieldErrs
	}
	if err := binding.Validator.ValidateStruct(&q); err != nil {
		return Quality{}, respond.FieldErrors(err)
	}
	return q, nil
}

type summary struct {
	Total                int            `json:"total"`
	ByRiskLevel          map[string]int `json:"by_risk_level"`
	AverageConcentration *float64       `json:"average_concentration"`
	LatestConcentration  *float64       `json:"latest_concentration"`
}

func summarize(recs []Record) summary {
	s := summary{Total: len(recs), ByRiskLevel: map[string]int{}}
	if len(recs) == 0 {
		return s
	}
	var sum float64
	for _, rec := range recs {
		s.ByRiskLevel[string(rec.RiskLevel)]++
		sum += rec.Concentration
	}
	avg := math.Round(sum/float64(len(recs))*100) / 100
	latest := recs[0].Concentration
	s.AverageConcentration = &avg
	s.LatestConcentration = &latest
	return s
}
