// Package storage wraps the filesystem operations a transfer needs
// (open/read/write/truncate/unlink, directory creation) behind small
// interfaces so the transfer engine never touches os.* directly.
package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Reader serves sequential chunk reads of a source file for SaW, and
// absolute-offset reads for SR.
type Reader interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// Writer accumulates received bytes, flushing to disk at the threshold
// the caller chooses, and supports unlinking the partial file on a
// failed integrity check.
type Writer interface {
	io.Closer
	// Write appends bytes to the file. Both SaW and SR call it strictly
	// in file order (the SR receiver only writes once window_base's
	// slot is filled), so the file on disk is always a prefix of the
	// final file during the transfer.
	Write(p []byte) (int, error)
	Flush() error
	Path() string
}

type fileReader struct {
	f    *os.File
	size int64
}

// OpenReader opens path for reading and stats its size up front.
func OpenReader(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: opening %s for read", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "storage: stat %s", path)
	}
	return &fileReader{f: f, size: st.Size()}, nil
}

func (r *fileReader) ReadAt(p []byte, off int64) (int, error) { return r.f.ReadAt(p, off) }
func (r *fileReader) Close() error                             { return r.f.Close() }
func (r *fileReader) Size() int64                              { return r.size }

type fileWriter struct {
	f       *os.File
	path    string
	buf     []byte
	bufOff  int64
	written int64
	flushAt int
}

// CreateWriter creates (truncating if necessary) the file at path for
// writing, buffering writes and flushing once flushAt bytes have
// accumulated. It does not itself reject an existing path — callers
// validate FILE_ALREADY_EXISTS against Exists beforehand, since by the
// time CreateWriter runs the request has already been accepted.
func CreateWriter(path string, flushAt int) (Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "storage: creating directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: creating %s", path)
	}
	return &fileWriter{f: f, path: path, flushAt: flushAt}, nil
}

func (w *fileWriter) Path() string { return w.path }

func (w *fileWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	w.written += int64(len(p))
	if len(w.buf) >= w.flushAt {
		if err := w.Flush(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (w *fileWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	n, err := w.f.WriteAt(w.buf, w.bufOff)
	w.bufOff += int64(n)
	w.buf = w.buf[:0]
	if err != nil {
		return errors.Wrapf(err, "storage: flushing %s", w.path)
	}
	return nil
}

func (w *fileWriter) Close() error {
	if err := w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Exists reports whether path already exists on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Unlink removes path, ignoring a not-exist error.
func Unlink(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "storage: unlinking %s", path)
	}
	return nil
}

// EnsureDir creates dir (and parents) if missing.
func EnsureDir(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0o755), "storage: creating directory %s", dir)
}
