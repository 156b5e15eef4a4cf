// Package imageindex resolves free-text product names to image URLs.
//
// Resolution runs in three stages, cheapest first:
//
//  1. exact lookup of the trimmed name against image ids and normalized names
//  2. exact lookup of the normalized name
//  3. a token-subset scan over the images in feed order
//
// The scan keeps tokens longer than MinTokenLen and returns the first image
// whose normalized name contains every token. It has no uniqueness
// guarantee; ties go to the earliest image in the feed.
package imageindex

import (
	"strings"

	"github.com/palmtask/palmtask/internal/normalize"
	"github.com/palmtask/palmtask/internal/schema"
)

// MinTokenLen is the length a token must exceed to take part in the fuzzy
// scan. Shorter tokens ("de", "x") match almost everything.
const MinTokenLen = 2

// Index maps image ids and normalized names to URLs. It is read-only after
// Build and safe for concurrent use.
type Index struct {
	byKey  map[string]string
	images []schema.ProductImage
}

// Build indexes images by id and by normalized name. When two images share
// a key the later one wins.
func Build(images []schema.ProductImage) *Index {
	idx := &Index{
		byKey:  make(map[string]string, len(images)*2),
		images: append([]schema.ProductImage(nil), images...),
	}
	for _, img := range images {
		if img.ID != "" {
			idx.byKey[img.ID] = img.ImageURL
		}
		if img.NormalizedName != "" {
			idx.byKey[img.NormalizedName] = img.ImageURL
		}
	}
	return idx
}

// Len returns the number of distinct keys in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byKey)
}

// Resolve returns the image URL for name.
func (idx *Index) Resolve(name string) (string, bool) {
	if idx == nil {
		return "", false
	}
	key := strings.TrimSpace(name)
	if key == "" {
		return "", false
	}
	if url, ok := idx.byKey[key]; ok {
		return url, true
	}

	target := normalize.Text(key)
	if url, ok := idx.byKey[target]; ok {
		return url, true
	}

	return idx.scan(normalize.Tokens(target, MinTokenLen))
}

func (idx *Index) scan(tokens []string) (string, bool) {
	if len(tokens) == 0 {
		return "", false
	}
	for _, img := range idx.images {
		if containsAll(img.NormalizedName, tokens) {
			return img.ImageURL, true
		}
	}
	return "", false
}

func containsAll(s string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}
