package fs

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data next to path and renames it into place, so readers
// observe either the previous or the new complete content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	return writeAndRename(tmp, data, perm, path)
}

// ReplaceVia writes data to the named staging file and renames it over path.
// The staging file must live in the same directory as path.
func ReplaceVia(staging, path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := writeAndRename(f, data, perm, path); err != nil {
		os.Remove(staging)
		return err
	}
	return nil
}

func writeAndRename(f *os.File, data []byte, perm os.FileMode, path string) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func CopyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
