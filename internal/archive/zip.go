// Package archive packs a style's cached tiles into a zip file.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ZipDir writes every finished regular file under srcDir into a deflate-compressed
// zip at destZip and returns destZip. Entry names are slash-separated and
// relative to srcDir, so a tile cache yields entries like "3/4/2.png".
//
// The archive is written to a temporary file next to destZip and renamed
// into place, so readers never observe a partial archive. Cancelling ctx
// stops the walk and removes the temporary file.
func ZipDir(ctx context.Context, srcDir, destZip string) (string, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("archive: %s is not a directory", srcDir)
	}

	if err := os.MkdirAll(filepath.Dir(destZip), 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destZip), ".tmp-*.zip")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() || isPartial(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := tmp.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return "", fmt.Errorf("archive %s: %w", srcDir, walkErr)
	}

	if err := os.Rename(tmpName, destZip); err != nil {
		return "", err
	}
	return destZip, nil
}

// isPartial reports whether name is an unfinished atomic write left behind
// by an interrupted download.
func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp")
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
