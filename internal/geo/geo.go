// Package geo provides the boundary geometry used by the choropleth map:
// a one-time remote GeoJSON fetch with a local shapefile fallback, keyed by
// region name. Boundary data is rendering-only; every failure is soft.
package geo

import (
	"github.com/twpayne/go-geom"
)

// Feature is one named boundary geometry.
type Feature struct {
	Name       string         `json:"name"`
	Geometry   geom.T         `json:"-"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Center returns the bounding-box center of the feature, lon/lat.
func (f Feature) Center() (lon, lat float64) {
	if f.Geometry == nil {
		return 0, 0
	}
	b := f.Geometry.Bounds()
	return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2
}

// FeatureSet is an immutable collection of boundary features indexed by
// region name.
type FeatureSet struct {
	features []Feature
	byName   map[string]int
	raw      []byte // GeoJSON document for passthrough to the renderer
}

// NewFeatureSet indexes features by name. Later duplicates of a name are
// ignored.
func NewFeatureSet(features []Feature, raw []byte) *FeatureSet {
	fs := &FeatureSet{
		features: features,
		byName:   make(map[string]int, len(features)),
		raw:      raw,
	}
	for i, f := range features {
		if _, dup := fs.byName[f.Name]; !dup {
			fs.byName[f.Name] = i
		}
	}
	return fs
}

// Len returns the number of features.
func (fs *FeatureSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.features)
}

// Get returns the feature for the given region name.
func (fs *FeatureSet) Get(name string) (Feature, bool) {
	if fs == nil {
		return Feature{}, false
	}
	i, ok := fs.byName[name]
	if !ok {
		return Feature{}, false
	}
	return fs.features[i], true
}

// Names returns every feature name in document order.
func (fs *FeatureSet) Names() []string {
	if fs == nil {
		return nil
	}
	out := make([]string, len(fs.features))
	for i, f := range fs.features {
		out[i] = f.Name
	}
	return out
}

// Raw returns the GeoJSON document the set was built from, for passthrough
// to the map renderer.
func (fs *FeatureSet) Raw() []byte {
	if fs == nil {
		return nil
	}
	return fs.raw
}
