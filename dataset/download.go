package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// DefaultDownloadTimeout bounds a dataset download.
const DefaultDownloadTimeout = 10 * time.Minute

var zipMagic = []byte("PK\x03\x04")

// Download fetches url into the directory dest and returns the files it
// wrote. A zip archive is extracted into dest; any other body is saved under
// the name from Content-Disposition, or the last path element of the URL.
// A nil client uses a client with DefaultDownloadTimeout.
func Download(ctx context.Context, client *http.Client, url, dest string) ([]string, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultDownloadTimeout}
	}
	logger := log.GetLoggerWithName("dataset.Download")
	start := time.Now()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dest)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "build download request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(dest, ".download-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temporary file")
	}
	defer os.Remove(tmp.Name())
	size, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", url)
	}

	head := make([]byte, len(zipMagic))
	if f, err := os.Open(tmp.Name()); err == nil {
		_, _ = io.ReadFull(f, head)
		f.Close()
	}

	var files []string
	if bytes.Equal(head, zipMagic) {
		files, err = extractZip(tmp.Name(), dest)
		if err != nil {
			return nil, err
		}
	} else {
		target := filepath.Join(dest, downloadName(resp, url))
		if err := os.Rename(tmp.Name(), target); err != nil {
			return nil, errors.Wrapf(err, "save %s", target)
		}
		files = []string{target}
	}

	logger.Info("Dataset downloaded",
		log.OperationKey, log.OperationDownload,
		log.PathKey, dest,
		"download.bytes", size,
		"download.files", len(files),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return files, nil
}

func downloadName(resp *http.Response, url string) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := filepath.Base(params["filename"]); name != "." && name != "/" && params["filename"] != "" {
			return name
		}
	}
	name := url
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

// extractZip writes every file of the archive under dest. Entries that would
// escape dest are rejected.
func extractZip(archive, dest string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, errors.Wrap(err, "open zip archive")
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var files []string
	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, errors.NewValueError("dataset.Download", fmt.Sprintf("illegal file path in archive: %q", f.Name))
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, errors.WithStack(err)
			}
			continue
		}
		if err := writeZipFile(f, target); err != nil {
			return nil, err
		}
		files = append(files, target)
	}
	return files, nil
}

func writeZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.WithStack(err)
	}
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "open %s", f.Name)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(err, "extract %s", f.Name)
	}
	return errors.WithStack(out.Close())
}
