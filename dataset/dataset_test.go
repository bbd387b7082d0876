package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

const sampleCSV = `chunk_id,project,has_conflict,lines,developerdecision
1,a/b,True,10,Version 1
2,a/b,False,3,Version 2
3,a/b,true,NA,Manual
4,,False,7,Version 1
5,a/b,FALSE,2,None
6,a/b,True,1,
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProjectFile(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "apache__commons-lang-training.csv"), ProjectFile("data", "apache/commons-lang"))
	assert.Equal(t, "apache__commons-lang", FileName("apache/commons-lang"))
}

func TestIsNA(t *testing.T) {
	for _, cell := range []string{"", "NA", "NaN", "nan", "null", "NULL", "#N/A", "<NA>", "n/a"} {
		assert.True(t, IsNA(cell), cell)
	}
	for _, cell := range []string{"None", "0", "Version 1", " "} {
		assert.False(t, IsNA(cell), cell)
	}
}

func TestLoadAndDropNA(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p-training.csv", sampleCSV)
	frame, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, frame.Len())
	assert.Equal(t, []string{"chunk_id", "project", "has_conflict", "lines", "developerdecision"}, frame.Columns)

	clean := frame.DropNA()
	assert.Equal(t, 3, clean.Len())
	assert.Equal(t, 6, frame.Len(), "DropNA must not modify the frame")

	names, err := frame.TargetNames(DefaultLabelColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"Manual", "None", "Version 1", "Version 2"}, names)

	labels, err := clean.Labels(DefaultLabelColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"Version 1", "Version 2", "None"}, labels)
}

func TestFeatures(t *testing.T) {
	frame, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	X, names, err := frame.DropNA().Features(DefaultLabelColumn, []string{"chunk_id", "project"})
	require.NoError(t, err)
	assert.Equal(t, []string{"has_conflict", "lines"}, names)
	assert.True(t, mat.Equal(mat.NewDense(3, 2, []float64{1, 10, 0, 3, 0, 2}), X))

	X, _, err = frame.Features(DefaultLabelColumn, []string{"chunk_id", "project"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(X.At(2, 1)))
	assert.Error(t, errors.CheckMatrix("fit", X))

	_, _, err = frame.Features(DefaultLabelColumn, []string{"missing"})
	var de *errors.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "missing", de.Column)

	_, _, err = frame.Features(DefaultLabelColumn, []string{"chunk_id", "project", "has_conflict", "lines"})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestFeaturesPaddedCells(t *testing.T) {
	frame, err := Read(strings.NewReader("a,b,developerdecision\n True, 2 ,Manual\nfalse ,3,Manual\n"))
	require.NoError(t, err)
	X, _, err := frame.Features(DefaultLabelColumn, nil)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 0, 3}), X))
}

func TestFeaturesNonNumeric(t *testing.T) {
	frame, err := Read(strings.NewReader("x,developerdecision\nabc,Manual\n"))
	require.NoError(t, err)
	_, _, err = frame.Features(DefaultLabelColumn, nil)
	var de *errors.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Row)
	assert.Equal(t, "x", de.Column)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = Read(strings.NewReader("a,b\n1,2,3\n"))
	var de *errors.DataError
	assert.True(t, errors.As(err, &de))

	_, err = Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, errors.Is(err, errors.ErrProjectNotFound))
}

func TestDuplicateColumns(t *testing.T) {
	frame, err := Read(strings.NewReader("a,a,a\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "a.2"}, frame.Columns)
	col, err := frame.Column("a.2")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, col)
}

func TestLabelEncoder(t *testing.T) {
	enc := NewLabelEncoder([]string{"Version 2", "Manual", "Version 1", "Manual"})
	assert.Equal(t, []string{"Manual", "Version 1", "Version 2"}, enc.Classes())

	y, err := enc.Transform([]string{"Version 1", "Manual", "Version 2"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 2}, mat.Col(nil, 0, y))

	back, err := enc.InverseTransform([]float64{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"Version 2", "Manual"}, back)

	assert.Equal(t, []float64{0, 2}, enc.Codes([]string{"Version 2", "Manual", "Combination"}))

	_, err = enc.Transform([]string{"Combination"})
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
	_, err = enc.InverseTransform([]float64{3})
	assert.Error(t, err)
}

func TestClassDistribution(t *testing.T) {
	labels := []string{"Version 1", "Version 1", "Manual", "None", ""}
	assert.Equal(t, []float64{2, 0, 0, 0, 0, 1, 1}, ClassDistribution(labels, Decisions, false))

	pct := ClassDistribution(labels, Decisions, true)
	assert.InDelta(t, 50.0, pct[0], 1e-9)
	assert.InDelta(t, 25.0, pct[5], 1e-9)
	assert.InDelta(t, 25.0, pct[6], 1e-9)

	assert.Equal(t, make([]float64, 7), ClassDistribution(nil, Decisions, true))
}

func TestLoaderCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "owner__repo-training.csv", sampleCSV)

	loader := NewLoader(dir, time.Minute)
	first, err := loader.Load("owner/repo")
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	second, err := loader.Load("owner/repo")
	require.NoError(t, err)
	assert.Same(t, first, second)

	loader.Flush()
	_, err = loader.Load("owner/repo")
	assert.True(t, errors.Is(err, errors.ErrProjectNotFound))
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func setupHTTPMock(t *testing.T) *http.Client {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestDownloadExtractsZip(t *testing.T) {
	client := setupHTTPMock(t)
	archive := zipArchive(t, map[string]string{
		"projects/a__b-training.csv": sampleCSV,
		"LABELLED_DATASET.csv":       "x\n1\n",
	})
	httpmock.RegisterResponder("GET", "https://example.com/dataset.zip",
		httpmock.NewBytesResponder(http.StatusOK, archive))

	dest := t.TempDir()
	files, err := Download(context.Background(), client, "https://example.com/dataset.zip", dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dest, "projects", "a__b-training.csv"),
		filepath.Join(dest, "LABELLED_DATASET.csv"),
	}, files)

	frame, err := Load(ProjectFile(filepath.Join(dest, "projects"), "a/b"))
	require.NoError(t, err)
	assert.Equal(t, 6, frame.Len())

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".download-"), "temporary file left behind")
	}
}

func TestDownloadPlainFile(t *testing.T) {
	client := setupHTTPMock(t)
	httpmock.RegisterResponder("GET", "https://example.com/uc",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, "a,b\n1,2\n")
			resp.Header.Set("Content-Disposition", `attachment; filename="LABELLED_DATASET.csv"`)
			return resp, nil
		})

	dest := t.TempDir()
	files, err := Download(context.Background(), client, "https://example.com/uc?export=download", dest)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dest, "LABELLED_DATASET.csv")}, files)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestDownloadErrors(t *testing.T) {
	client := setupHTTPMock(t)
	httpmock.RegisterResponder("GET", "https://example.com/missing",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))
	httpmock.RegisterResponder("GET", "https://example.com/evil.zip",
		httpmock.NewBytesResponder(http.StatusOK, zipArchive(t, map[string]string{"../evil.txt": "x"})))

	_, err := Download(context.Background(), client, "https://example.com/missing", t.TempDir())
	assert.ErrorContains(t, err, "404")

	dest := t.TempDir()
	_, err = Download(context.Background(), client, "https://example.com/evil.zip", dest)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
