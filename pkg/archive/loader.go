package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kdriscoll/histrag/internal/models"
)

// Loader reads a folder of archive files back into Documents. Files written
// by Writer have their Date/Title header parsed out; anything else loads as
// raw content titled by its filename.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Load(dir string) ([]models.Document, error) {
	var documents []models.Document

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		documents = append(documents, parseDocument(path, string(data)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("no documents found in %s", dir)
	}
	return documents, nil
}

func parseDocument(path, data string) models.Document {
	if date, title, content, ok := splitHeader(data); ok {
		return models.NewDocument(path, title, date, content)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return models.NewDocument(path, title, models.UnknownDate, data)
}

// splitHeader recognizes the Writer's file format: Date and Title lines, a
// rule of = characters, a blank line, then the body.
func splitHeader(data string) (date, title, content string, ok bool) {
	lines := strings.SplitN(data, "\n", 5)
	if len(lines) < 5 {
		return "", "", "", false
	}
	if !strings.HasPrefix(lines[0], "Date: ") ||
		!strings.HasPrefix(lines[1], "Title: ") ||
		!strings.HasPrefix(lines[2], "====") ||
		strings.TrimSpace(lines[3]) != "" {
		return "", "", "", false
	}

	date = strings.TrimSpace(strings.TrimPrefix(lines[0], "Date: "))
	title = strings.TrimSpace(strings.TrimPrefix(lines[1], "Title: "))
	return date, title, lines[4], true
}
