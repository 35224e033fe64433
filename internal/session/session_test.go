package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edadash/internal/catalog"
	"github.com/KaramelBytes/edadash/internal/clean"
	"github.com/KaramelBytes/edadash/internal/config"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/loader"
	"github.com/KaramelBytes/edadash/internal/outlier"
	"github.com/KaramelBytes/edadash/internal/pdf"
	"github.com/KaramelBytes/edadash/internal/plot"
)

const salesCSV = "region,price,qty\nnorth,10,1\nsouth,12,2\nnorth,11,\nnorth,10,1\neast,100,3\nsouth,9,2\n"

type fakePDF struct {
	err   error
	calls int
}

func (f *fakePDF) Render(_ context.Context, htmlPath, pdfPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(htmlPath); err != nil {
		return err
	}
	return os.WriteFile(pdfPath, []byte("%PDF-1.4\n"), 0o644)
}

func newDashboard(t *testing.T, r pdf.Renderer) *Dashboard {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	return NewDashboard(cfg, r, nil)
}

func uploaded(t *testing.T, d *Dashboard) State {
	t.Helper()
	st, err := d.Upload(NewState(), "sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)
	require.True(t, st.HasData())
	return st
}

func TestUploadAndPreview(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)
	assert.Equal(t, "sales.csv", st.FileName)
	assert.FileExists(t, st.Path)
	assert.Equal(t, []string{"region", "price", "qty"}, st.Data.Names())
	assert.Equal(t, 6, st.Data.Rows())
	require.Len(t, st.Notices, 1)
	assert.Equal(t, LevelSuccess, st.Notices[0].Level)
	assert.Contains(t, st.Notices[0].Message, "6 rows × 3 columns")

	head := Preview(st.Data, 2)
	assert.Equal(t, [][]string{{"north", "10", "1"}, {"south", "12", "2"}}, head)
	assert.Equal(t, "6 rows × 3 columns, 2 numeric, 1 categorical, 1 missing cells", Describe(st.Data))
}

func TestUploadFailureClearsData(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)
	next, err := d.Upload(st, "notes.txt", strings.NewReader("hello"))
	require.ErrorIs(t, err, loader.ErrUnsupportedFormat)
	assert.False(t, next.HasData())
	assert.Equal(t, st.ID, next.ID)
	require.Len(t, next.Notices, 1)
	assert.Equal(t, LevelError, next.Notices[0].Level)
	assert.True(t, st.HasData(), "previous state must be untouched")
}

func TestOperationsWithoutData(t *testing.T) {
	d := newDashboard(t, nil)
	st := NewState()
	_, err := d.DropColumns(st, []string{"x"})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = d.FillMissing(st, clean.StrategyMean, clean.FillOptions{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = d.DropDuplicates(st)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = d.HandleOutliers(st, "x", outlier.PolicyCap)
	assert.ErrorIs(t, err, ErrNoData)
	_, _, err = d.Plot(st, plot.Request{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = d.GenerateReport(context.Background(), st)
	assert.ErrorIs(t, err, ErrNoData)
	_, _, err = d.Export(st, loader.FormatCSV)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCleaningPipelineKeepsPriorStates(t *testing.T) {
	d := newDashboard(t, nil)
	st0 := uploaded(t, d)

	st1, err := d.DropDuplicates(st0)
	require.NoError(t, err)
	assert.Equal(t, 5, st1.Data.Rows())
	assert.Contains(t, st1.Notices[0].Message, "Removed 1 duplicate")

	st2, err := d.FillMissing(st1, clean.StrategyMedian, clean.FillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, st2.Data.MissingCells())
	assert.Contains(t, st2.Notices[0].Message, "Filled 1 missing cell")

	st3, err := d.DropColumns(st2, []string{"region"})
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "qty"}, st3.Data.Names())
	assert.Equal(t, []string{"drop duplicates", "fill missing: median", "drop region"}, st3.Steps)

	assert.Equal(t, 6, st0.Data.Rows())
	assert.Equal(t, 1, st1.Data.MissingCells())
	assert.Equal(t, 3, st2.Data.Width())
	assert.Len(t, st1.Steps, 1)
}

func TestDropUnknownColumnKeepsData(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)
	next, err := d.DropColumns(st, []string{"price", "ghost"})
	require.ErrorIs(t, err, dataset.ErrColumnNotFound)
	assert.Equal(t, 3, next.Data.Width())
	assert.Equal(t, LevelError, next.Notices[0].Level)
}

func TestHandleOutliers(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)

	found, err := d.HandleOutliers(st, "price", outlier.PolicyNone)
	require.NoError(t, err)
	require.NotNil(t, found.Outliers)
	assert.Equal(t, 1, found.Outliers.Count)
	assert.Contains(t, found.Notices[0].Message, "1 outlier(s) found in price")
	assert.Same(t, st.Data, found.Data)

	removed, err := d.HandleOutliers(st, "price", outlier.PolicyRemove)
	require.NoError(t, err)
	assert.Equal(t, 5, removed.Data.Rows())
	assert.Equal(t, 6, st.Data.Rows())

	_, err = d.HandleOutliers(st, "region", outlier.PolicyCap)
	require.ErrorIs(t, err, dataset.ErrNotNumeric)
	info, _ := d.HandleOutliers(st, "region", outlier.PolicyCap)
	assert.Equal(t, LevelInfo, info.Notices[0].Level)
}

func TestPlotSuggestsColumns(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)

	png, next, err := d.Plot(st, plot.Request{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	assert.Equal(t, plot.KindHistogram, next.Plot.Kind)
	assert.Equal(t, "price", next.Plot.X)

	_, next, err = d.Plot(st, plot.Request{Kind: plot.KindScatter})
	require.NoError(t, err)
	assert.Equal(t, "price", next.Plot.X)
	assert.Equal(t, "qty", next.Plot.Y)

	_, next, err = d.Plot(st, plot.Request{Kind: plot.KindBar})
	require.NoError(t, err)
	assert.Equal(t, "region", next.Plot.X)
}

func TestPlotWithoutNumericColumnsIsInfo(t *testing.T) {
	d := newDashboard(t, nil)
	st, err := d.Upload(NewState(), "names.csv", strings.NewReader("name\nann\nbob\n"))
	require.NoError(t, err)
	require.Len(t, st.Notices, 2)
	assert.Equal(t, LevelInfo, st.Notices[1].Level)

	_, next, err := d.Plot(st, plot.Request{Kind: plot.KindHistogram})
	require.ErrorIs(t, err, dataset.ErrNoNumericColumns)
	assert.Equal(t, LevelInfo, next.Notices[0].Level)
}

func TestResolvePlot(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)

	req, err := ResolvePlot(st.Data, plot.Request{})
	require.NoError(t, err)
	assert.Equal(t, plot.Request{Kind: plot.KindHistogram, X: "price"}, req)

	_, err = ResolvePlot(st.Data, plot.Request{Kind: plot.KindBar, X: "price"})
	require.ErrorIs(t, err, dataset.ErrNoCategoricalColumns)
	assert.Equal(t, LevelInfo, NoticeFor(err).Level)

	_, err = ResolvePlot(st.Data, plot.Request{Kind: plot.KindScatter, X: "ghost", Y: "qty"})
	require.ErrorIs(t, err, dataset.ErrColumnNotFound)
	n := NoticeFor(err)
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, strings.ToUpper(err.Error()[:1]), n.Message[:1])
}

func TestGenerateReportWithPDF(t *testing.T) {
	r := &fakePDF{}
	d := newDashboard(t, r)
	st := uploaded(t, d)

	next, err := d.GenerateReport(context.Background(), st)
	require.NoError(t, err)
	require.NotNil(t, next.Report)
	assert.Equal(t, 1, r.calls)
	assert.FileExists(t, next.Report.HTML)
	assert.FileExists(t, next.Report.JSON)
	assert.FileExists(t, next.Report.PDF)
	assert.True(t, strings.HasPrefix(filepath.Base(next.Report.HTML), "eda_report_"))
	require.Len(t, next.Notices, 1)
	assert.Equal(t, LevelSuccess, next.Notices[0].Level)

	c, err := catalog.Load(d.OutputDir)
	require.NoError(t, err)
	e, ok := c.Get(next.Report.EntryID)
	require.True(t, ok)
	assert.Equal(t, "sales.csv", e.Source)
	assert.Equal(t, next.Report.PDF, e.PDFPath)
}

func TestGenerateReportPDFFailureKeepsHTML(t *testing.T) {
	r := &fakePDF{err: &pdf.RenderError{Tool: "wkhtmltopdf", Stderr: "boom", Err: errors.New("exit status 1")}}
	d := newDashboard(t, r)
	st := uploaded(t, d)

	next, err := d.GenerateReport(context.Background(), st)
	require.NoError(t, err)
	assert.FileExists(t, next.Report.HTML)
	assert.Empty(t, next.Report.PDF)
	require.Len(t, next.Notices, 2)
	assert.Equal(t, LevelWarn, next.Notices[1].Level)
	assert.Contains(t, next.Notices[1].Message, "boom")
	matches, _ := filepath.Glob(filepath.Join(d.OutputDir, "*.pdf"))
	assert.Empty(t, matches)
}

func TestGenerateReportWithoutRenderer(t *testing.T) {
	d := newDashboard(t, nil)
	next, err := d.GenerateReport(context.Background(), uploaded(t, d))
	require.NoError(t, err)
	assert.Empty(t, next.Report.PDF)
	assert.Contains(t, next.Notices[1].Message, pdf.ErrRendererNotFound.Error())
}

func TestExport(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)
	b, name, err := d.Export(st, loader.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sales_clean.csv", name)
	assert.True(t, strings.HasPrefix(string(b), "region,price,qty\nnorth,10,1\n"))

	b, name, err = d.Export(st, loader.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "sales_clean.xlsx", name)
	assert.True(t, bytes.HasPrefix(b, []byte("PK")))

	_, _, err = d.Export(st, loader.FormatODS)
	assert.ErrorIs(t, err, loader.ErrUnsupportedFormat)
}

func TestReset(t *testing.T) {
	d := newDashboard(t, nil)
	st := uploaded(t, d)
	next := d.Reset(st)
	assert.False(t, next.HasData())
	assert.Equal(t, st.ID, next.ID)
}

func TestStoreUpdateSerializesPerSession(t *testing.T) {
	s := NewStore()
	st := s.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(st.ID, func(cur State) (State, error) {
				return cur.step("x"), nil
			})
		}()
	}
	wg.Wait()
	got, ok := s.Get(st.ID)
	require.True(t, ok)
	assert.Len(t, got.Steps, 50)
}

func TestStoreUpdateKeepsFailureState(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")
	next, err := s.Update("abc", func(cur State) (State, error) {
		return cur.WithNotice(LevelError, "Boom"), boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "abc", next.ID)
	got, ok := s.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "Boom", got.Notices[0].Message)
}

func TestStoreEvictionAndPrune(t *testing.T) {
	s := NewStore()
	s.Max = 2
	old := State{ID: "old", UpdatedAt: time.Now().Add(-time.Hour)}
	s.Put(old)
	s.Put(State{ID: "mid", UpdatedAt: time.Now().Add(-time.Minute)})
	s.Put(State{ID: "new", UpdatedAt: time.Now()})
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("old")
	assert.False(t, ok)

	assert.Equal(t, 1, s.Prune(time.Now().Add(-30*time.Second)))
	_, ok = s.Get("new")
	assert.True(t, ok)
	s.Delete("new")
	assert.Equal(t, 0, s.Len())
}
