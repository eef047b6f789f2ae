package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Destination resolves where doc is written for dest. When dest is an
// existing directory or ends in a path separator the file is named after the
// source, <stem>_output.<ext>; otherwise dest is the file itself.
func Destination(fs afero.Fs, dest string, doc *Document, f Format) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("Destination -> empty path")
	}

	isDir := strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, string(os.PathSeparator))

	if !isDir {
		ok, err := afero.IsDir(fs, dest)
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("Destination %s -> %w", dest, err)
		}
		isDir = ok
	}

	if !isDir {
		return dest, nil
	}

	stem := strings.TrimSuffix(filepath.Base(doc.Source), filepath.Ext(doc.Source))
	if doc.Source == "" || stem == "" || stem == "." || stem == string(os.PathSeparator) {
		stem = "container"
	}

	return filepath.Join(dest, stem+"_output."+f.Ext()), nil
}

// Write renders doc in format f to the file resolved by Destination and
// returns its path. Missing parent directories are created. The SQLite
// format goes through the database driver and only works on the OS
// filesystem.
func Write(fs afero.Fs, dest string, doc *Document, f Format) (string, error) {
	path, err := Destination(fs, dest, doc, f)
	if err != nil {
		return "", err
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("MkdirAll %s -> %w", filepath.Dir(path), err)
	}

	if !f.Stream() {
		if _, ok := fs.(*afero.OsFs); !ok {
			return "", fmt.Errorf("Write %s -> %w: %s needs the OS filesystem", path, ErrUnsupported, f)
		}

		if err := writeSQLite(path, doc); err != nil {
			return "", fmt.Errorf("Write %s -> %w", path, err)
		}

		return path, nil
	}

	file, err := fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("Create %s -> %w", path, err)
	}

	if err := WriteTo(file, doc, f); err != nil {
		file.Close()
		return "", fmt.Errorf("Write %s -> %w", path, err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("Close %s -> %w", path, err)
	}

	return path, nil
}
