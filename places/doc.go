// Package places finds venues users can check in to.
//
// A search is either a coordinate pair or free text. Free text is geocoded
// through a Nominatim compatible service, then venues around the point are
// fetched from an Overpass compatible service. When an upstream call fails
// the Finder answers with a small static list so the app stays usable.
package places
