// Package geo converts the published TopoJSON district topology into
// GeoJSON features and locates stations inside them.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrNotTopology reports a document whose type member is not "Topology".
var ErrNotTopology = errors.New("not a TopoJSON topology")

type topology struct {
	Type      string               `json:"type"`
	Transform *topoTransform       `json:"transform"`
	Arcs      [][][]float64        `json:"arcs"`
	Objects   map[string]*topoGeom `json:"objects"`
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeom struct {
	Type       string          `json:"type"`
	Arcs       json.RawMessage `json:"arcs"`
	Geometries []*topoGeom     `json:"geometries"`
	Properties map[string]any  `json:"properties"`
	ID         any             `json:"id"`
}

// DecodeTopology converts a TopoJSON document into a GeoJSON feature
// collection. Quantized topologies (transform present, delta-encoded arcs)
// and unquantized ones are both handled. Polygon and MultiPolygon objects
// become features; a GeometryCollection contributes its children. Object id
// and properties carry over unchanged.
func DecodeTopology(doc []byte) (*geojson.FeatureCollection, error) {
	var topo topology
	if err := json.Unmarshal(doc, &topo); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if topo.Type != "Topology" {
		return nil, fmt.Errorf("%w: type %q", ErrNotTopology, topo.Type)
	}

	arcs := decodeArcs(topo.Arcs, topo.Transform)

	fc := geojson.NewFeatureCollection()
	for _, obj := range topo.Objects {
		if err := appendFeatures(fc, obj, arcs); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// decodeArcs resolves every arc to absolute coordinates. With a transform
// the arc points are integer deltas that accumulate before scaling. Points
// with fewer than two elements are dropped.
func decodeArcs(raw [][][]float64, tr *topoTransform) []orb.LineString {
	arcs := make([]orb.LineString, len(raw))
	for i, arc := range raw {
		line := make(orb.LineString, 0, len(arc))
		var x, y float64
		for _, pt := range arc {
			if len(pt) < 2 {
				continue
			}
			if tr == nil {
				line = append(line, orb.Point{pt[0], pt[1]})
				continue
			}
			x += pt[0]
			y += pt[1]
			line = append(line, orb.Point{
				x*tr.Scale[0] + tr.Translate[0],
				y*tr.Scale[1] + tr.Translate[1],
			})
		}
		arcs[i] = line
	}
	return arcs
}

func appendFeatures(fc *geojson.FeatureCollection, obj *topoGeom, arcs []orb.LineString) error {
	switch obj.Type {
	case "GeometryCollection":
		for _, child := range obj.Geometries {
			if err := appendFeatures(fc, child, arcs); err != nil {
				return err
			}
		}
		return nil

	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(obj.Arcs, &rings); err != nil {
			return fmt.Errorf("polygon arcs: %w", err)
		}
		polygon, err := assemblePolygon(rings, arcs)
		if err != nil {
			return err
		}
		fc.Append(newFeature(obj, polygon))
		return nil

	case "MultiPolygon":
		var parts [][][]int
		if err := json.Unmarshal(obj.Arcs, &parts); err != nil {
			return fmt.Errorf("multipolygon arcs: %w", err)
		}
		multi := make(orb.MultiPolygon, 0, len(parts))
		for _, rings := range parts {
			polygon, err := assemblePolygon(rings, arcs)
			if err != nil {
				return err
			}
			multi = append(multi, polygon)
		}
		fc.Append(newFeature(obj, multi))
		return nil

	default:
		return fmt.Errorf("unsupported geometry type %q", obj.Type)
	}
}

func newFeature(obj *topoGeom, geometry orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(geometry)
	f.ID = obj.ID
	for k, v := range obj.Properties {
		f.Properties[k] = v
	}
	return f
}

func assemblePolygon(rings [][]int, arcs []orb.LineString) (orb.Polygon, error) {
	polygon := make(orb.Polygon, 0, len(rings))
	for _, refs := range rings {
		ring, err := assembleRing(refs, arcs)
		if err != nil {
			return nil, err
		}
		polygon = append(polygon, ring)
	}
	return polygon, nil
}

// assembleRing stitches referenced arcs into one ring. A negative reference
// ~i means arc i traversed backwards. Consecutive arcs share their junction
// point, which is appended only once.
func assembleRing(refs []int, arcs []orb.LineString) (orb.Ring, error) {
	var ring orb.Ring
	for _, ref := range refs {
		idx := ref
		if idx < 0 {
			idx = ^idx
		}
		if idx >= len(arcs) {
			return nil, fmt.Errorf("arc %d out of range", ref)
		}

		arc := arcs[idx]
		points := make([]orb.Point, len(arc))
		copy(points, arc)
		if ref < 0 {
			for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
				points[i], points[j] = points[j], points[i]
			}
		}

		if len(ring) > 0 && len(points) > 0 && ring[len(ring)-1] == points[0] {
			points = points[1:]
		}
		ring = append(ring, points...)
	}
	return ring, nil
}

// Locate returns the first feature whose geometry contains the point, or
// nil when the point falls outside every district.
func Locate(fc *geojson.FeatureCollection, pt orb.Point) *geojson.Feature {
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return f
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return f
			}
		}
	}
	return nil
}
