// Package corpus loads contract documents from disk.
package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"compliance/internal/domain"
	"compliance/internal/logger"
)

// DefaultMaxDocuments caps how many files Load reads.
const DefaultMaxDocuments = 50

// Options tune Load.
type Options struct {
	// MaxDocuments limits the number of files read; 0 means DefaultMaxDocuments
	// and a negative value means no limit.
	MaxDocuments int
}

var supported = map[string]bool{".txt": true, ".pdf": true}

// List returns the sorted names of the contract files in dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !supported[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the first MaxDocuments contracts of dir in name order. Files that
// cannot be read are logged and skipped.
func Load(dir string, opts Options) ([]domain.Document, error) {
	names, err := List(dir)
	if err != nil {
		return nil, err
	}
	limit := opts.MaxDocuments
	if limit == 0 {
		limit = DefaultMaxDocuments
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	docs := make([]domain.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		text, err := ReadContract(path)
		if err != nil {
			logger.Warn("Error loading %s: %v", path, err)
			continue
		}
		docs = append(docs, domain.Document{
			ID:      strings.TrimSuffix(name, filepath.Ext(name)),
			Path:    path,
			Content: text,
		})
		logger.Debug("Loaded: %s", name)
	}
	logger.Info("Total contracts loaded: %d", len(docs))
	return docs, nil
}

// ReadContract returns the text of a .txt or .pdf contract. Invalid UTF-8 in
// text files is dropped.
func ReadContract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.ToValidUTF8(string(data), ""), nil
	}
}

// readPDF extracts plain text. The pdf package panics on some malformed
// files, so panics are reported as errors.
func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if buf.Len() == 0 {
		return "", errors.New("no text extracted from pdf")
	}
	return buf.String(), nil
}
