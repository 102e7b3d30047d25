package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kdriscoll/histrag/internal/models"
)

const maxFilenameLen = 240

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Writer persists scraped documents as plain-text files named
// YYYY-MM-DD_Title.txt with a small metadata header.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// Write saves the document and returns the path it was written to.
// Re-writing the same (date, title) overwrites the previous file.
func (w *Writer) Write(doc models.Document) (string, error) {
	name := fmt.Sprintf("%s_%s.txt", doc.Date, SanitizeFilename(doc.Title))
	path := filepath.Join(w.dir, name)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Date: %s\n", doc.Date))
	b.WriteString(fmt.Sprintf("Title: %s\n", doc.Title))
	b.WriteString(strings.Repeat("=", 80))
	b.WriteString("\n\n")
	b.WriteString(doc.Content)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to save document %q: %w", doc.Title, err)
	}
	return path, nil
}

// SanitizeFilename replaces characters that are unsafe in filenames and
// caps the result at 240 bytes, never splitting a multi-byte rune.
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = strings.ReplaceAll(sanitized, "\n", " ")
	sanitized = strings.ReplaceAll(sanitized, "\r", " ")
	sanitized = strings.TrimSpace(sanitized)
	if len(sanitized) > maxFilenameLen {
		cut := maxFilenameLen
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = sanitized[:cut]
	}
	return sanitized
}
