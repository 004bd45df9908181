package pipeline

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// WriteArchive bundles the rendered documents and the reports into one zip.
// Documents are nested under a folder per sales order; reports sit at the
// archive root.
func WriteArchive(archivePath string, documents []*Document, reports []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("error creating archive %s: %w", archivePath, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)

	addFile := func(name, src string) error {
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("error opening %s for archive: %w", src, err)
		}
		defer f.Close()

		entry, err := w.Create(name)
		if err != nil {
			return fmt.Errorf("error creating archive entry %s: %w", name, err)
		}
		if _, err := io.Copy(entry, f); err != nil {
			return fmt.Errorf("error writing archive entry %s: %w", name, err)
		}
		return nil
	}

	for _, doc := range documents {
		name := path.Join(sanitizeFileName(doc.Order), filepath.Base(doc.Path))
		if err := addFile(name, doc.Path); err != nil {
			return err
		}
	}

	for _, report := range reports {
		if err := addFile(filepath.Base(report), report); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("error finalizing archive %s: %w", archivePath, err)
	}
	return nil
}
