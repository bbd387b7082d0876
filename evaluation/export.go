package evaluation

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// Table is a result that can be printed or exported as rows of strings.
type Table interface {
	Header() []string
	Records() [][]string
}

var (
	_ Table = (*Report)(nil)
	_ Table = (*Comparison)(nil)
	_ Table = (*Distribution)(nil)
	_ Table = (*Leaderboard)(nil)
	_ Table = (*CurveSummary)(nil)
	_ Table = (*ConfusionTable)(nil)
	_ Table = (*ScoresTable)(nil)
)

// WriteCSV writes the header and records of t.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return errors.WithStack(err)
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// WriteYAML encodes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return errors.WithStack(enc.Close())
}

// SaveSnapshot writes v to path in msgpack format. The file is replaced
// atomically.
func SaveSnapshot(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	f, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	if err := msgpack.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(f.Name(), path))
}

// LoadSnapshot decodes a snapshot written by SaveSnapshot into v.
func LoadSnapshot(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(err, "decode snapshot %s", path)
	}
	return nil
}
