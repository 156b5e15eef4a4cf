// Package feed fetches the raw delimited-text feeds.
//
// A Source hands out one body per feed. HTTPSource reads the published
// spreadsheet endpoint; DirSource reads exported files from a local
// directory. Both report a missing or failed feed as a *StatusError so the
// orchestrator can tell "the server answered, but not with data" apart from
// transport failures.
package feed

import (
	"context"
	"fmt"
	"io"
)

// Feed identifies one of the five published feeds.
type Feed string

const (
	Tasks         Feed = "tasks"
	NonBuyers     Feed = "non_buyers"
	SkuMap        Feed = "sku_map"
	ProductImages Feed = "product_images"
	Consultants   Feed = "consultants"
)

// All lists every feed, primary first.
var All = []Feed{Tasks, NonBuyers, SkuMap, ProductImages, Consultants}

// Primary reports whether a failure of f must abort a sync.
func (f Feed) Primary() bool { return f == Tasks }

// FileName is the name of the feed's export inside a DirSource.
func (f Feed) FileName() string { return string(f) + ".csv" }

// ParseFeed maps a feed name back to its Feed.
func ParseFeed(name string) (Feed, error) {
	for _, f := range All {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feed %q", name)
}

// Source provides feed bodies.
type Source interface {
	// Available reports nil when the source can be reached.
	Available(ctx context.Context) error

	// Open starts fetching feed f. The caller must close the body. A source
	// that answered without data returns a *StatusError.
	Open(ctx context.Context, f Feed) (io.ReadCloser, error)
}

// StatusError reports that a feed was reached but did not return data.
type StatusError struct {
	Feed   Feed
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed %s: unexpected status %s", e.Feed, e.Status)
}
