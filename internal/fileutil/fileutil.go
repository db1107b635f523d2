package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path with default permissions (0o644) so
// readers see either the old file or the complete new one.
func WriteFileAtomic(path string, data []byte) error {
	return WriteFileAtomicMode(path, data, 0o644)
}

// WriteFileAtomicMode writes data to a temp file beside path, syncs it, and
// renames it into place. The parent directory is created when missing.
func WriteFileAtomicMode(path string, data []byte, mode os.FileMode) error {
	_, err := writeAtomic(path, bytes.NewReader(data), mode)
	return err
}

// WriteReaderVerified streams r to path atomically and verifies the bytes on
// disk hash to what was read. It returns the number of bytes written. The
// destination is left untouched on any failure.
func WriteReaderVerified(path string, r io.Reader) (int64, error) {
	return writeAtomic(path, r, 0o644)
}

func writeAtomic(path string, r io.Reader, mode os.FileMode) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(tmp, io.TeeReader(r, srcHasher))
	if err != nil {
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := verifyFile(tmpPath, written, srcHasher.Sum(nil)); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return written, nil
}

func verifyFile(path string, size int64, sum []byte) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen temp file: %w", err)
	}
	defer in.Close()

	dstHasher := sha256.New()
	read, err := io.Copy(dstHasher, in)
	if err != nil {
		return fmt.Errorf("read back temp file: %w", err)
	}
	if read != size {
		return fmt.Errorf("write size mismatch: wrote %d bytes, found %d bytes", size, read)
	}
	if !bytes.Equal(sum, dstHasher.Sum(nil)) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	return nil
}
