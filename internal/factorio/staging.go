package factorio

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path if it does not exist. Reports whether the
// directory had to be created.
func EnsureDir(path string) (bool, error) {
	err := os.Mkdir(path, 0o755)
	if err == nil {
		return true, nil
	}
	if os.IsExist(err) {
		return false, nil
	}
	return false, err
}

// CreateDirSafely creates a fresh directory called name under parent.
// When the name is taken, numbered variants name_0, name_1, ... are tried
// until one is free.
func CreateDirSafely(parent, name string) (string, error) {
	for appendix := -1; ; appendix++ {
		candidate := name
		if appendix >= 0 {
			candidate = fmt.Sprintf("%s_%d", name, appendix)
		}
		path := filepath.Join(parent, candidate)
		created, err := EnsureDir(path)
		if err != nil {
			return "", err
		}
		if created {
			return path, nil
		}
	}
}

// WriteFileSafely writes contents to name.extension under parent without
// overwriting: when the file exists, numbered variants name_0.extension,
// name_1.extension, ... are tried. The extension is passed without a
// leading dot. Returns the path written.
func WriteFileSafely(parent, name, extension string, contents []byte) (string, error) {
	for appendix := -1; ; appendix++ {
		candidate := name
		if appendix >= 0 {
			candidate = fmt.Sprintf("%s_%d", name, appendix)
		}
		path := filepath.Join(parent, candidate+"."+extension)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(contents); err != nil {
			f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
}

// TempDir marks a staged directory for removal unless released. Removal is
// non-recursive: a directory that gained unexpected content is left alone.
type TempDir struct {
	path         string
	shouldDelete bool
}

// NewTempDir wraps an existing directory that should be removed on
// cleanup.
func NewTempDir(path string) *TempDir {
	return &TempDir{path: path, shouldDelete: true}
}

// EnsureTempDir ensures path exists. The directory is only removed on
// cleanup when it had to be created here.
func EnsureTempDir(path string) (*TempDir, error) {
	created, err := EnsureDir(path)
	if err != nil {
		return nil, err
	}
	return &TempDir{path: path, shouldDelete: created}, nil
}

// Path returns the staged directory.
func (d *TempDir) Path() string {
	return d.path
}

// Release keeps the directory on cleanup.
func (d *TempDir) Release() {
	d.shouldDelete = false
}

// Cleanup removes the directory unless released. Safe to defer
// unconditionally.
func (d *TempDir) Cleanup() {
	if d.shouldDelete {
		d.shouldDelete = false
		_ = os.Remove(d.path)
	}
}

// TempFile marks a staged file for removal on cleanup.
type TempFile struct {
	path         string
	shouldDelete bool
}

// NewTempFile wraps an existing file that should be removed on cleanup.
func NewTempFile(path string) *TempFile {
	return &TempFile{path: path, shouldDelete: true}
}

// Cleanup removes the file. Safe to defer unconditionally.
func (f *TempFile) Cleanup() {
	if f.shouldDelete {
		f.shouldDelete = false
		_ = os.Remove(f.path)
	}
}
