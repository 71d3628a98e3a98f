package places

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Searcher is the upstream used by a Finder; *Client implements it.
type Searcher interface {
	Geocode(ctx context.Context, query string) (lat, lng float64, err error)
	Nearby(ctx context.Context, lat, lng float64) ([]Local, error)
}

// Query selects where to search. Coordinates win over free text.
type Query struct {
	Lat       float64
	Lng       float64
	HasCoords bool
	Search    string
}

// Fallback is returned whenever an upstream service fails.
func Fallback() []Local {
	return []Local{
		{ID: "1", Name: "Joe's Bar", Type: "Bar", Description: "Cold beer and snacks."},
		{ID: "2", Name: "Neon Club", Type: "Nightclub", Description: "Electronic music and drinks."},
		{ID: "3", Name: "Central Mall", Type: "Mall", Description: "Food court and shops."},
		{ID: "4", Name: "Flavor Restaurant", Type: "Restaurant", Description: "Home-style cooking."},
	}
}

// Finder answers place searches, degrading to Fallback on upstream errors.
type Finder struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewFinder creates a finder. A nil logger discards output.
func NewFinder(searcher Searcher, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Finder{searcher: searcher, logger: logger}
}

// Find never fails: an empty query or an unknown search term yields an empty
// list, and upstream failures yield the fallback list.
func (f *Finder) Find(ctx context.Context, q Query) []Local {
	if !q.HasCoords && q.Search == "" {
		return []Local{}
	}

	lat, lng := q.Lat, q.Lng
	if !q.HasCoords {
		var err error
		lat, lng, err = f.searcher.Geocode(ctx, q.Search)
		if errors.Is(err, ErrNotFound) {
			return []Local{}
		}
		if err != nil {
			f.logger.Warn("geocoding failed, using fallback places", "search", q.Search, "error", err)
			return Fallback()
		}
	}

	locals, err := f.searcher.Nearby(ctx, lat, lng)
	if err != nil {
		f.logger.Warn("place search failed, using fallback places", "lat", lat, "lng", lng, "error", err)
		return Fallback()
	}
	return locals
}
