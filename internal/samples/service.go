package samples

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"copper-backend/internal/analyzer"
	"copper-backend/internal/shared/metrics"
	"copper-backend/internal/shared/storage/object"
	"copper-backend/internal/shared/telemetry"
	"copper-backend/internal/shared/util"
)

// AllowedExtensions lists the accepted upload extensions.
var AllowedExtensions = []string{"png", "jpg", "jpeg"}

// AllowedFile reports whether name carries an accepted image extension.
func AllowedFile(name string) bool {
	ext := util.Extension(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Service runs the upload, analyze and persist lifecycle and enforces
// record ownership.
type Service struct {
	Repo     Repo
	Store    object.ObjectStore
	Analyzer analyzer.Analyzer

	now func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, an analyzer.Analyzer) *Service {
	return &Service{Repo: repo, Store: store, Analyzer: an, now: time.Now}
}

// Submit stores the upload, analyzes it and persists a record owned by
// ownerID. When analysis or persistence fails the stored image is removed
// and no record exists.
func (s *Service) Submit(ctx context.Context, ownerID int64, up Upload) (Record, error) {
	if s == nil || s.Repo == nil || s.Store == nil || s.Analyzer == nil {
		return Record{}, errors.New("samples service not configured")
	}
	if up.Body == nil || strings.TrimSpace(up.FileName) == "" {
		metrics.IncUploadRejected()
		return Record{}, ErrNoFile
	}
	if !AllowedFile(up.FileName) {
		metrics.IncUploadRejected()
		return Record{}, ErrUnsupportedType
	}

	key, size, mimeType, err := s.Store.Save(ctx, strconv.FormatInt(ownerID, 10), up.FileName, up.Body)
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			metrics.IncUploadRejected()
			return Record{}, ErrUnsupportedType
		}
		metrics.IncAnalysisFailed()
		return Record{}, &StorageError{Op: "save image", Err: err}
	}
	telemetry.Info("upload.saved", map[string]any{
		"user_id":    ownerID,
		"image_path": key,
		"size":       size,
		"mime_type":  mimeType,
	})
	metrics.IncAnalysisSubmitted()
	start := time.Now()

	result, err := s.Analyzer.Analyze(ctx, key)
	metrics.ObserveAnalysisDurationMs(metrics.SinceMillis(start))
	if err != nil {
		s.discard(ctx, key)
		metrics.IncAnalysisFailed()
		var ae *analyzer.AnalysisError
		if !errors.As(err, &ae) {
			err = &analyzer.AnalysisError{Path: key, Err: err}
		}
		return Record{}, err
	}

	details, err := json.Marshal(result.Details)
	if err != nil {
		s.discard(ctx, key)
		metrics.IncAnalysisFailed()
		return Record{}, &StorageError{Op: "encode details", Err: err}
	}

	rec := Record{
		UserID:        ownerID,
		CreatedAt:     s.clock().UTC(),
		ImagePath:     key,
		Concentration: result.Concentration,
		RiskLevel:     result.RiskLevel,
		Details:       details,
		Quality:       up.Quality,
	}
	id, err := s.Repo.Create(ctx, rec)
	if err != nil {
		s.discard(ctx, key)
		metrics.IncAnalysisFailed()
		return Record{}, storageErr("create", err)
	}
	rec.ID = id
	metrics.IncAnalysisCompleted()
	telemetry.Info("analysis.created", map[string]any{
		"user_id":       ownerID,
		"analysis_id":   id,
		"concentration": rec.Concentration,
		"risk_level":    string(rec.RiskLevel),
	})
	return rec, nil
}

// Get returns record id if requesterID owns it.
func (s *Service) Get(ctx context.Context, requesterID, id int64) (Record, error) {
	rec, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != requesterID {
		telemetry.Warn("analysis.forbidden", map[string]any{
			"user_id":     requesterID,
			"analysis_id": id,
		})
		return Record{}, ErrForbidden
	}
	return rec, nil
}

// Dashboard lists ownerID's records, newest first. It never returns nil.
func (s *Service) Dashboard(ctx context.Context, ownerID int64) ([]Record, error) {
	recs, err := s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// OpenImage opens the stored image of a record owned by requesterID.
func (s *Service) OpenImage(ctx context.Context, requesterID, id int64) (io.ReadCloser, Record, error) {
	rec, err := s.Get(ctx, requesterID, id)
	if err != nil {
		return nil, Record{}, err
	}
	rc, err := s.Store.Open(ctx, rec.ImagePath)
	if err != nil {
		return nil, Record{}, fmt.Errorf("%w: %v", ErrImageMissing, err)
	}
	return rc, rec, nil
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		telemetry.Error("upload.cleanup_failed", map[string]any{
			"image_path": key,
			"error":      err.Error(),
		})
		return
	}
	telemetry.Info("upload.discarded", map[string]any{"image_path": key})
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
