package schema

import (
	"fmt"
	"strconv"

	"github.com/palmtask/palmtask/internal/normalize"
)

// ProductImage links a catalog product to its picture.
type ProductImage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl"`
	NormalizedName string `json:"normalizedName"`
}

// Key returns the store key for the image.
func (p ProductImage) Key() string { return p.ID }

// Validate checks that the image has an id, a name and a URL.
func (p ProductImage) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("id is required")
	case p.Name == "":
		return fmt.Errorf("name is required")
	case p.ImageURL == "":
		return fmt.Errorf("imageUrl is required")
	}
	return nil
}

// DecodeProductImages maps the ProductImages feed. Rows need at least three
// columns and a non-blank name and URL. A blank id falls back to the row's
// position in the feed (header is row 0).
func DecodeProductImages(rows [][]string) ([]ProductImage, DecodeStats) {
	data := dataRows(rows)
	stats := DecodeStats{Rows: len(data)}
	out := make([]ProductImage, 0, len(data))

	for i, values := range data {
		if len(values) < 3 {
			stats.Dropped++
			continue
		}
		r := row{values: values}
		name, url := r.get(1), r.get(2)
		if name == "" || url == "" {
			stats.Dropped++
			continue
		}
		id := r.text(0, strconv.Itoa(i+1))
		out = append(out, ProductImage{
			ID:             id,
			Name:           name,
			ImageURL:       url,
			NormalizedName: normalize.Text(name),
		})
		if r.defaulted {
			stats.Defaulted++
		}
	}

	stats.Decoded = len(out)
	return out, stats
}
