package plot

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("s", []*dataset.Column{
		dataset.NewNumeric("price", []float64{3, 4.5, math.NaN(), 7, 7, 12}),
		dataset.NewNumeric("qty", []float64{1, 2, 2, 3, math.NaN(), 9}),
		dataset.NewStrings("city", dataset.KindCategorical, []string{"Rome", "Oslo", "Rome", "", "Lima", "Rome"}),
		dataset.NewStrings("day", dataset.KindDatetime, []string{"2024-01-03", "2024-01-01", "2024-01-02", "2024-01-05", "2024-01-04", "2024-01-06"}),
	})
	require.NoError(t, err)
	return ds
}

func TestRenderEveryKind(t *testing.T) {
	ds := sample(t)
	reqs := []Request{
		{Kind: KindHistogram, X: "price", Bins: 5},
		{Kind: KindBox, X: "qty"},
		{Kind: KindBox},
		{Kind: KindScatter, X: "price", Y: "qty"},
		{Kind: KindLine, Y: "price"},
		{Kind: KindLine, X: "qty", Y: "price"},
		{Kind: KindLine, X: "day", Y: "price"},
		{Kind: KindBar, X: "city"},
	}
	for _, req := range reqs {
		t.Run(string(req.Kind)+"/"+req.X, func(t *testing.T) {
			b, err := Render(ds, req)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(b, pngMagic), "not a PNG")
		})
	}
}

func TestRenderSingleValueColumns(t *testing.T) {
	ds, err := dataset.New("one", []*dataset.Column{
		dataset.NewNumeric("x", []float64{5}),
		dataset.NewNumeric("y", []float64{5}),
		dataset.NewStrings("c", dataset.KindCategorical, []string{"only"}),
	})
	require.NoError(t, err)
	for _, req := range []Request{
		{Kind: KindHistogram, X: "x"},
		{Kind: KindScatter, X: "x", Y: "y"},
		{Kind: KindLine, Y: "y"},
		{Kind: KindBar, X: "c"},
	} {
		_, err := Render(ds, req)
		assert.NoError(t, err, req.Kind)
	}
}

func TestRenderInformationalErrors(t *testing.T) {
	textOnly, err := dataset.New("t", []*dataset.Column{
		dataset.NewStrings("c", dataset.KindCategorical, []string{"a", "b"}),
	})
	require.NoError(t, err)
	numOnly, err := dataset.New("n", []*dataset.Column{
		dataset.NewNumeric("x", []float64{1, 2}),
		dataset.NewNumeric("empty", []float64{math.NaN(), math.NaN()}),
	})
	require.NoError(t, err)

	cases := []struct {
		name string
		ds   *dataset.Dataset
		req  Request
		want error
	}{
		{"hist without numbers", textOnly, Request{Kind: KindHistogram, X: "c"}, dataset.ErrNoNumericColumns},
		{"box without numbers", textOnly, Request{Kind: KindBox}, dataset.ErrNoNumericColumns},
		{"bar without categories", numOnly, Request{Kind: KindBar, X: "x"}, dataset.ErrNoCategoricalColumns},
		{"hist of empty column", numOnly, Request{Kind: KindHistogram, X: "empty"}, dataset.ErrEmptyColumn},
		{"scatter of categorical", sample(t), Request{Kind: KindScatter, X: "city", Y: "price"}, dataset.ErrNotNumeric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Render(tc.ds, tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, dataset.IsInfo(err))
		})
	}

	_, err = Render(sample(t), Request{Kind: KindHistogram, X: "nope"})
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
	assert.False(t, dataset.IsInfo(err))
}

func TestSuggest(t *testing.T) {
	ds := sample(t)
	req, err := Suggest(ds, KindScatter)
	require.NoError(t, err)
	assert.Equal(t, "price", req.X)
	assert.Equal(t, "qty", req.Y)

	req, err = Suggest(ds, KindLine)
	require.NoError(t, err)
	assert.Equal(t, "day", req.X)
	assert.Equal(t, "price", req.Y)

	req, err = Suggest(ds, KindBar)
	require.NoError(t, err)
	assert.Equal(t, "city", req.X)

	textOnly, err := dataset.New("t", []*dataset.Column{
		dataset.NewStrings("c", dataset.KindCategorical, []string{"a"}),
	})
	require.NoError(t, err)
	_, err = Suggest(textOnly, KindHistogram)
	assert.ErrorIs(t, err, dataset.ErrNoNumericColumns)
}

func TestValueCounts(t *testing.T) {
	col, err := sample(t).Column("city")
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"Rome", 3}, {"Lima", 1}, {"Oslo", 1}}, ValueCounts(col))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Histogram")
	require.NoError(t, err)
	assert.Equal(t, KindHistogram, k)
	_, err = ParseKind("pie")
	assert.Error(t, err)
}

func TestCheckMatchesRender(t *testing.T) {
	ds := sample(t)
	reqs := []Request{
		{Kind: KindHistogram, X: "price"},
		{Kind: KindHistogram, X: "city"},
		{Kind: KindHistogram, X: "ghost"},
		{Kind: KindBox},
		{Kind: KindScatter, X: "price", Y: "day"},
		{Kind: KindLine, Y: "qty"},
		{Kind: KindLine, X: "ghost", Y: "qty"},
		{Kind: KindBar, X: "city"},
		{Kind: KindBar, X: "price"},
		{Kind: "pie"},
	}
	for _, req := range reqs {
		_, renderErr := Render(ds, req)
		checkErr := Check(ds, req)
		assert.Equal(t, renderErr == nil, checkErr == nil, "%+v: render=%v check=%v", req, renderErr, checkErr)
		assert.Equal(t, dataset.IsInfo(renderErr), dataset.IsInfo(checkErr), "%+v", req)
	}
}
