// Package manifest records the products of a build as a small line-oriented
// file that farm tooling and download pages consume. Each product is one
// line, "file <type> <path>", written after every product has reached its
// final location.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest file written into each build output directory.
const FileName = "build-products"

// TypeBinaryDist marks a downloadable binary product.
const TypeBinaryDist = "binary-dist"

// Entry is one build product.
type Entry struct {
	Type string
	Path string
}

// Manifest accumulates products for one output directory.
type Manifest struct {
	entries []Entry
}

// New creates an empty manifest.
func New() *Manifest {
	return &Manifest{}
}

// Add records a binary-dist product.
func (m *Manifest) Add(path string) {
	m.AddTyped(TypeBinaryDist, path)
}

// AddTyped records a product with an explicit type.
func (m *Manifest) AddTyped(entryType, path string) {
	m.entries = append(m.entries, Entry{Type: entryType, Path: path})
}

// Entries returns the recorded products in insertion order.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// WriteTo writes the manifest in its line format.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range m.entries {
		n, err := fmt.Fprintf(w, "file %s %s\n", e.Type, e.Path)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteFile writes the manifest into dir as FileName.
func (m *Manifest) WriteFile(dir string) error {
	var sb strings.Builder
	if _, err := m.WriteTo(&sb); err != nil {
		return err
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Parse reads a manifest back into entries. Blank lines are skipped;
// anything else that is not a "file <type> <path>" line is an error.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "file" {
			return nil, fmt.Errorf("line %d: malformed manifest entry: %s", lineNo, line)
		}
		entries = append(entries, Entry{Type: fields[1], Path: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return entries, nil
}

// ParseFile reads the manifest in dir.
func ParseFile(dir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return Parse(f)
}
