package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// Extractor unpacks an archive into destPath, stripping the number of
// leading path elements configured in the dependency entry.
type Extractor func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec DepSpec) error

// ForURL picks an extractor based on the archive extension.
func ForURL(url string) (Extractor, error) {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip, nil
	case strings.HasSuffix(url, ".tar.gz"):
		return func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec DepSpec) error {
			reader, err := gzip.NewReader(f)
			if err != nil {
				return err
			}
			defer reader.Close()

			return extractTar(reader, f, bar, destPath, spec)
		}, nil
	case strings.HasSuffix(url, ".tar.bz2"):
		return func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec DepSpec) error {
			return extractTar(bzip2.NewReader(f), f, bar, destPath, spec)
		}, nil
	case strings.HasSuffix(url, ".tar.xz"):
		return func(f *os.File, bar *progressbar.ProgressBar, destPath string, spec DepSpec) error {
			reader, err := xz.NewReader(f)
			if err != nil {
				return err
			}

			return extractTar(reader, f, bar, destPath, spec)
		}, nil
	}

	return nil, eris.Errorf("Archive format of %s not supported", url)
}

// stripPath removes the configured number of leading path elements. The
// second return value is false when nothing is left.
func stripPath(item string, strip int) (string, bool) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(item)), "/")
	if len(parts) <= strip {
		return "", false
	}

	return filepath.Join(parts[strip:]...), true
}

func createDest(destPath, item string, spec DepSpec) (*os.File, string, error) {
	stripped, ok := stripPath(item, spec.Strip)
	if !ok {
		return nil, "", nil
	}

	dest := filepath.Join(destPath, stripped)
	destParent := filepath.Dir(dest)
	err := os.MkdirAll(destParent, 0770)
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create directory %s", destParent)
	}

	handle, err := os.Create(dest)
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create file %s", dest)
	}

	return handle, dest, nil
}

func extractZip(f *os.File, bar *progressbar.ProgressBar, destPath string, spec DepSpec) error {
	stat, err := f.Stat()
	if err != nil {
		return err
	}

	archive, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return err
	}

	for _, item := range archive.File {
		if strings.HasSuffix(item.Name, "/") {
			continue
		}

		destHandle, dest, err := createDest(destPath, item.Name, spec)
		if err != nil {
			return err
		}

		if destHandle == nil {
			continue
		}

		itemHandle, err := item.Open()
		if err != nil {
			destHandle.Close()
			return eris.Wrap(err, "Failed to open archive entry")
		}

		_, err = io.Copy(destHandle, itemHandle)
		itemHandle.Close()
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to write extracted file %s", dest)
		}

		if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
			bar.Set64(pos)
		}
	}

	return nil
}

func extractTar(r io.Reader, f *os.File, bar *progressbar.ProgressBar, destPath string, spec DepSpec) error {
	archive := tar.NewReader(r)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "Failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		destHandle, dest, err := createDest(destPath, item.Name, spec)
		if err != nil {
			return err
		}

		if destHandle == nil {
			continue
		}

		if item.Typeflag == tar.TypeSymlink {
			destHandle.Close()
			err := os.Remove(dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to remove placeholder file %s", dest)
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		_, err = io.Copy(destHandle, archive)
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to write extracted file %s", dest)
		}

		os.Chmod(dest, fi.Mode())

		if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
			bar.Set64(pos)
		}
	}

	return nil
}
