package analysis

import (
	"path/filepath"
	"strings"
)

// Kind is the classification of an uploaded artifact.
type Kind string

const (
	KindImage       Kind = "image"
	KindDocument    Kind = "document"
	KindUnsupported Kind = "unsupported"
)

// FileRef points at one staged input file.
type FileRef struct {
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	Kind         Kind   `json:"kind"`
}

// Skipped records an input that was excluded from analysis. Skips are
// ordinary data surfaced to the caller, not failures.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

// Classify reports the kind of a file from its extension. Pure and
// deterministic; unsupported is a normal outcome.
func Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExtensions[ext]:
		return KindImage
	case ext == ".pdf":
		return KindDocument
	default:
		return KindUnsupported
	}
}

// Screen classifies every file and splits the sequence into refs that can be
// analyzed and skip annotations for the rest. Input order is preserved in
// both outputs.
func Screen(files []FileRef) ([]FileRef, []Skipped) {
	var valid []FileRef
	var skipped []Skipped

	for _, f := range files {
		kind := Classify(f.OriginalName)
		if kind == KindUnsupported {
			skipped = append(skipped, Skipped{
				Name:   f.OriginalName,
				Reason: "unsupported file type",
			})
			continue
		}
		f.Kind = kind
		valid = append(valid, f)
	}

	return valid, skipped
}
