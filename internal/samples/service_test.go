package samples

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copper-backend/internal/analyzer"
	"copper-backend/internal/risk"
	localstore "copper-backend/internal/shared/storage/object/local"
)

type knownOwners map[int64]bool

func (k knownOwners) Exists(_ context.Context, id int64) (bool, error) {
	return k[id], nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

type fixture struct {
	svc  *Service
	repo *MemoryRepo
	dir  string
}

func newFixture(t *testing.T, owners ...int64) fixture {
	t.Helper()
	dir := t.TempDir()
	known := knownOwners{}
	for _, id := range owners {
		known[id] = true
	}
	repo := NewMemoryRepo(known)
	store := localstore.New(dir)
	an := analyzer.NewSimulated(store, rand.New(rand.NewPCG(7, 11)))
	return fixture{svc: NewService(repo, store, an), repo: repo, dir: dir}
}

type spyAnalyzer struct {
	calls int
}

func (s *spyAnalyzer) Analyze(context.Context, string) (analyzer.Result, error) {
	s.calls++
	return analyzer.Result{}, errors.New("should not be called")
}

type failingRepo struct{}

func (failingRepo) Create(context.Context, Record) (int64, error) {
	return 0, errors.New("connection reset")
}

func (failingRepo) ListByOwner(context.Context, int64) ([]Record, error) {
	return nil, errors.New("connection reset")
}

func (failingRepo) GetByID(context.Context, int64) (Record, error) {
	return Record{}, errors.New("connection reset")
}

func TestSubmitValidImageCreatesRecord(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	rec, err := f.svc.Submit(ctx, 1, Upload{FileName: "river sample.png", Body: bytes.NewReader(pngBytes(t, 40, 30))})
	require.NoError(t, err)

	assert.Positive(t, rec.ID)
	assert.Equal(t, int64(1), rec.UserID)
	assert.True(t, strings.HasPrefix(rec.ImagePath, "1/"), rec.ImagePath)
	assert.True(t, strings.HasSuffix(rec.ImagePath, "-river_sample.png"), rec.ImagePath)
	assert.GreaterOrEqual(t, rec.Concentration, 0.1)
	assert.LessOrEqual(t, rec.Concentration, 3.0)
	assert.Equal(t, risk.Classify(rec.Concentration), rec.RiskLevel)

	details, ok := rec.DecodedDetails()
	require.True(t, ok)
	assert.Equal(t, "40x30", details.ImageDimensions)
	assert.Equal(t, "mg/L", details.ConcentrationUnit)

	stored, err := f.svc.Get(ctx, 1, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ImagePath, stored.ImagePath)
	assert.Equal(t, 1, countFiles(t, f.dir))
}

func TestSubmitUnknownOwnerLeavesNoRecordOrFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, 99, Upload{FileName: "a.png", Body: bytes.NewReader(pngBytes(t, 4, 4))})
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, ErrOwnerNotFound)

	recs, err := f.svc.Dashboard(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, countFiles(t, f.dir))
}

func TestSubmitNonImageFailsWithAnalysisError(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, 1, Upload{FileName: "fake.png", Body: strings.NewReader("definitely not a png")})
	var ae *analyzer.AnalysisError
	require.ErrorAs(t, err, &ae)

	recs, err := f.svc.Dashboard(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, countFiles(t, f.dir))
}

func TestSubmitRejectsBeforeAnalysis(t *testing.T) {
	dir := t.TempDir()
	spy := &spyAnalyzer{}
	svc := NewService(NewMemoryRepo(knownOwners{1: true}), localstore.New(dir), spy)

	_, err := svc.Submit(context.Background(), 1, Upload{FileName: "photo.gif", Body: strings.NewReader("GIF89a")})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Submit(context.Background(), 1, Upload{FileName: "", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrNoFile)

	assert.Equal(t, 0, spy.calls)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestSubmitRepoFailureRemovesFile(t *testing.T) {
	dir := t.TempDir()
	store := localstore.New(dir)
	svc := NewService(failingRepo{}, store, analyzer.NewSimulated(store, nil))

	_, err := svc.Submit(context.Background(), 1, Upload{FileName: "a.jpg", Body: bytes.NewReader(pngBytes(t, 2, 2))})
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, countFiles(t, dir))
}

func TestDashboardNewestFirst(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()
	base := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	const n = 5
	var ids []int64
	for i := 0; i < n; i++ {
		rec, err := f.svc.Submit(ctx, 1, Upload{FileName: "s.png", Body: bytes.NewReader(pngBytes(t, 8, 8))})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	_, err := f.svc.Submit(ctx, 2, Upload{FileName: "other.png", Body: bytes.NewReader(pngBytes(t, 8, 8))})
	require.NoError(t, err)

	recs, err := f.svc.Dashboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, n)
	for i, rec := range recs {
		assert.Equal(t, ids[n-1-i], rec.ID)
		if i > 0 {
			assert.True(t, recs[i-1].CreatedAt.After(rec.CreatedAt))
		}
	}

	empty, err := f.svc.Dashboard(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t, 1, 2)
	ctx := context.Background()
	rec, err := f.svc.Submit(ctx, 1, Upload{FileName: "s.png", Body: bytes.NewReader(pngBytes(t, 8, 8))})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, 2, rec.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Get(ctx, 1, rec.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.OpenImage(ctx, 2, rec.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	rc, got, err := f.svc.OpenImage(ctx, 1, rec.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, rec.ID, got.ID)
}

func TestSubmitKeepsOptionalQuality(t *testing.T) {
	f := newFixture(t, 1)
	ph := 7.2
	loc := "Well 4"
	rec, err := f.svc.Submit(context.Background(), 1, Upload{
		FileName: "s.png",
		Body:     bytes.NewReader(pngBytes(t, 8, 8)),
		Quality:  Quality{PH: &ph, Location: &loc},
	})
	require.NoError(t, err)

	stored, err := f.repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PH)
	assert.Equal(t, 7.2, *stored.PH)
	assert.Equal(t, "Well 4", *stored.Location)
	assert.Nil(t, stored.Turbidity)
	assert.Nil(t, stored.Drinkable)
}

func TestRecordHelpers(t *testing.T) {
	rec := Record{
		CreatedAt: time.Date(2026, time.March, 4, 9, 15, 0, 0, time.UTC),
		RiskLevel: risk.Elevated,
		Details:   []byte("{not json"),
	}
	assert.Equal(t, "Mar 04, 2026 at 09:15", rec.FormattedTimestamp())
	assert.Equal(t, "warning", rec.RiskColor())
	_, ok := rec.DecodedDetails()
	assert.False(t, ok)
}
