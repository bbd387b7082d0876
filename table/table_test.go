package table

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

func sampleReport() *evaluation.Report {
	nan := math.NaN()
	return &evaluation.Report{Rows: []evaluation.Row{
		{Project: "org__alpha", Observations: 20, ObservationsClean: 18, Precision: 0.9, Recall: 0.8, F1: 0.85, Accuracy: 0.8, Baseline: 0.6, Improvement: 0.5},
		{Project: "org__beta", Observations: 8, ObservationsClean: 8, Precision: nan, Recall: nan, F1: nan, Accuracy: nan, Baseline: nan, Improvement: nan},
	}}
}

func TestRender(t *testing.T) {
	out := Render(sampleReport())
	for _, want := range []string{"project", "observations (wt NaN)", "org__alpha", "0.85", "NaN", "│"} {
		assert.Contains(t, out, want)
	}
	// header, separator, two rows and the outer border
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 6)
}

func TestCellStyle(t *testing.T) {
	assert.Equal(t, numberStyle.GetAlign(), cellStyle("0.5").GetAlign())
	assert.Equal(t, numberStyle.GetAlign(), cellStyle("12").GetAlign())
	assert.Equal(t, textStyle.GetAlign(), cellStyle("org__alpha").GetAlign())
	assert.Equal(t, nanStyle.GetForeground(), cellStyle("NaN").GetForeground())
}

func TestWrite(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{FormatTable, "org__alpha"},
		{"", "org__alpha"},
		{FormatCSV, "org__beta,8,8,NaN,NaN,NaN,NaN,NaN,NaN"},
		{FormatYAML, "project: org__alpha"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, sampleReport(), tt.format))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	err := Write(&bytes.Buffer{}, sampleReport(), "xml")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}
