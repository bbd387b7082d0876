// Package dataset reads the per-project training tables of merge-conflict
// chunks and turns them into feature matrices.
//
// A project table is a CSV file with a header row. Cells follow the pandas
// conventions of the tooling that produced them: an empty cell or one of the
// pandas NA tokens is missing, and boolean features are written as
// True/False.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// DefaultLabelColumn holds the developer decision of each chunk.
const DefaultLabelColumn = "developerdecision"

// naTokens are the strings pandas.read_csv treats as missing by default.
// "None" is not one of them: it is the developer decision "None".
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNA reports whether a raw cell is a missing value.
func IsNA(cell string) bool {
	_, ok := naTokens[cell]
	return ok
}

// ProjectFile returns the training table of project under dir. Slashes in
// the project name ("owner/repo") become double underscores.
func ProjectFile(dir, project string) string {
	return filepath.Join(dir, FileName(project)+"-training.csv")
}

// FileName is the project name as used in file names and result rows.
func FileName(project string) string {
	return strings.ReplaceAll(project, "/", "__")
}

// Frame is an immutable table of raw string cells.
type Frame struct {
	Path    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewFrame builds a frame from a header and rows. Every row must have one
// cell per column.
func NewFrame(columns []string, rows [][]string) (*Frame, error) {
	f := &Frame{Columns: columns, Rows: rows}
	if err := f.buildIndex(); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, errors.NewDataError(f.Path, i+2, "",
				fmt.Errorf("expected %d fields, got %d", len(columns), len(r)))
		}
	}
	return f, nil
}

// buildIndex maps column names to positions. Duplicate names are mangled the
// way pandas does ("a", "a.1", "a.2").
func (f *Frame) buildIndex() error {
	if len(f.Columns) == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s: no header", f.Path)
	}
	f.index = make(map[string]int, len(f.Columns))
	seen := make(map[string]int, len(f.Columns))
	for i, name := range f.Columns {
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
			f.Columns[i] = name
		} else {
			seen[name] = 0
		}
		f.index[name] = i
	}
	return nil
}

// Load reads a CSV table.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrProjectNotFound, "%s", path)
		}
		return nil, errors.NewDataError(path, 0, "", err)
	}
	defer file.Close()

	frame, err := Read(file)
	if err != nil {
		var de *errors.DataError
		if errors.As(err, &de) {
			de.Path = path
			return nil, err
		}
		return nil, errors.Wrapf(err, "%s", path)
	}
	frame.Path = path
	return frame, nil
}

// Read parses a CSV table from r.
func Read(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if err != nil {
		return nil, errors.NewDataError("", 1, "", err)
	}
	columns := make([]string, len(header))
	copy(columns, header)
	columns[0] = strings.TrimPrefix(columns[0], "\ufeff")

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, errors.NewDataError("", line, "", err)
		}
		rows = append(rows, record)
	}
	return NewFrame(columns, rows)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// HasColumn reports whether the frame has the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the raw cells of one column.
func (f *Frame) Column(name string) ([]string, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.NewDataError(f.Path, 0, name, fmt.Errorf("column not found"))
	}
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[j]
	}
	return out, nil
}

// DropNA returns a frame without the rows that have a missing value in any
// column.
func (f *Frame) DropNA() *Frame {
	kept := make([][]string, 0, len(f.Rows))
	for _, r := range f.Rows {
		complete := true
		for _, cell := range r {
			if IsNA(cell) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, r)
		}
	}
	return &Frame{Path: f.Path, Columns: f.Columns, Rows: kept, index: f.index}
}

// Labels returns the non-missing values of the label column.
func (f *Frame) Labels(label string) ([]string, error) {
	cells, err := f.Column(label)
	if err != nil {
		return nil, err
	}
	out := cells[:0:0]
	for _, c := range cells {
		if !IsNA(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// TargetNames returns the sorted distinct labels, missing labels excluded.
func (f *Frame) TargetNames(label string) ([]string, error) {
	labels, err := f.Labels(label)
	if err != nil {
		return nil, err
	}
	return uniqueStrings(labels), nil
}

func uniqueStrings(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Features returns the feature matrix made of every column except label and
// nonFeature, in file order, with the feature names. Missing cells become
// NaN. Every named non-feature column must exist.
func (f *Frame) Features(label string, nonFeature []string) (*mat.Dense, []string, error) {
	drop := map[string]struct{}{label: {}}
	for _, name := range append([]string{label}, nonFeature...) {
		if !f.HasColumn(name) {
			return nil, nil, errors.NewDataError(f.Path, 0, name, fmt.Errorf("column not found"))
		}
		drop[name] = struct{}{}
	}
	var cols []int
	var names []string
	for j, name := range f.Columns {
		if _, skip := drop[name]; !skip {
			cols = append(cols, j)
			names = append(names, name)
		}
	}
	if len(cols) == 0 || len(f.Rows) == 0 {
		return nil, nil, errors.Wrapf(errors.ErrEmptyData, "%s: %d rows, %d feature columns", f.Path, len(f.Rows), len(cols))
	}

	X := mat.NewDense(len(f.Rows), len(cols), nil)
	for i, r := range f.Rows {
		for k, j := range cols {
			v, err := parseCell(r[j])
			if err != nil {
				return nil, nil, errors.NewDataError(f.Path, i+2, f.Columns[j], err)
			}
			X.Set(i, k, v)
		}
	}
	return X, names, nil
}

// parseCell converts a feature cell to a number.
func parseCell(cell string) (float64, error) {
	if IsNA(cell) {
		return math.NaN(), nil
	}
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric feature value %q", cell)
	}
	return v, nil
}
