// Package content resolves downloaded content records to the files that
// back them on disk.
//
// Information Hiding:
// - Filesystem access goes through afero so callers pick the backing store
// - Part and split-chunk naming conventions stay inside this package

package content

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

const (
	// ArchiveExt is the extension of a complete single-file archive.
	ArchiveExt = ".zim"
	// PartSuffix marks a file whose download has not finished.
	PartSuffix = ".part"
)

// Record is a downloadable content unit tracked by the reader.
type Record struct {
	ID    string
	Title string
	File  string // Primary on-disk path; empty when the record has no file
}

// PartResolver maps records to their on-disk files.
type PartResolver struct {
	fs afero.Fs
}

// NewPartResolver creates a resolver probing the given filesystem.
func NewPartResolver(fs afero.Fs) *PartResolver {
	return &PartResolver{fs: fs}
}

// NewOsPartResolver creates a resolver over the host filesystem.
func NewOsPartResolver() *PartResolver {
	return NewPartResolver(afero.NewOsFs())
}

// Resolve returns the files that together hold the record's content.
//
// A plain archive resolves to its own path when it exists and to the
// matching ".part" path otherwise. A split archive (".zimaa", ".zimab", ...)
// resolves to its consecutive existing chunks, ending early at the first
// chunk still being downloaded. A record without a file resolves to nothing.
func (r *PartResolver) Resolve(rec Record) ([]string, error) {
	parts := []string{}
	if rec.File == "" {
		return parts, nil
	}

	if !isSplitChunk(rec.File) {
		exists, err := r.exists(rec.File)
		if err != nil {
			return nil, err
		}
		if exists {
			return append(parts, rec.File), nil
		}
		return append(parts, rec.File+PartSuffix), nil
	}

	base := rec.File[:len(rec.File)-2]
	for first := 'a'; first <= 'z'; first++ {
		for second := 'a'; second <= 'z'; second++ {
			chunk := base + string(first) + string(second)

			exists, err := r.exists(chunk)
			if err != nil {
				return nil, err
			}
			if exists {
				parts = append(parts, chunk)
				continue
			}

			partial, err := r.exists(chunk + PartSuffix)
			if err != nil {
				return nil, err
			}
			if partial {
				parts = append(parts, chunk+PartSuffix)
			}
			return parts, nil
		}
	}
	return parts, nil
}

func (r *PartResolver) exists(path string) (bool, error) {
	ok, err := afero.Exists(r.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
	return ok, nil
}

// isSplitChunk reports whether path names one chunk of a split archive,
// i.e. it ends in ".zim" followed by two lowercase letters.
func isSplitChunk(path string) bool {
	if len(path) < len(ArchiveExt)+2 {
		return false
	}
	suffix := path[len(path)-2:]
	for _, c := range suffix {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return strings.HasSuffix(path[:len(path)-2], ArchiveExt)
}
