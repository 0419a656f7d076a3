// Package discovery finds the PDF files a benchmark run measures.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extension is the case-sensitive suffix a candidate file must carry
const Extension = ".pdf"

// CandidateFile is a discovered input file
type CandidateFile struct {
	Path string
	Size int64
}

// Error reports a failure while walking the input tree
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("discovery: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Discover walks root recursively and returns every non-empty file whose
// name ends in Extension, de-duplicated by resolved path and ordered by
// size descending, then path ascending.
func Discover(root string) ([]CandidateFile, error) {
	seen := make(map[string]bool)
	var files []CandidateFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &Error{Op: "walk", Path: path, Err: err}
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Extension) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return &Error{Op: "stat", Path: path, Err: err}
		}
		// Symlinks are resolved so a file reachable twice is measured once.
		if info.Mode()&fs.ModeSymlink != 0 {
			info, err = os.Stat(path)
			if err != nil {
				return &Error{Op: "stat", Path: path, Err: err}
			}
		}
		if !info.Mode().IsRegular() || info.Size() <= 0 {
			return nil
		}

		resolved, err := resolve(path)
		if err != nil {
			return &Error{Op: "resolve", Path: path, Err: err}
		}
		if seen[resolved] {
			return nil
		}
		seen[resolved] = true

		files = append(files, CandidateFile{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, &Error{Op: "walk", Path: root, Err: err}
	}

	Sort(files)
	return files, nil
}

// Sort orders files largest first; equal sizes are ordered by path.
func Sort(files []CandidateFile) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].Size != files[j].Size {
			return files[i].Size > files[j].Size
		}
		return files[i].Path < files[j].Path
	})
}

// TotalSize returns the sum of the sizes of files
func TotalSize(files []CandidateFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
