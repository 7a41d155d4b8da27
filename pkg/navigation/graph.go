package navigation

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
)

// ErrDuplicateName is matched by every DuplicateNameError.
var ErrDuplicateName = errors.New("duplicate waypoint name")

// DuplicateNameError is returned by Graph.Add when the name is taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate waypoint name %q", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// Graph is the ordered waypoint sequence of an immersion. Insertion order is
// navigation order. It is built once during setup and only read afterwards.
type Graph struct {
	waypoints []*immersion.Waypoint
	index     map[string]int
}

// NewGraph appends the waypoints in order and returns the first error.
func NewGraph(waypoints ...*immersion.Waypoint) (*Graph, error) {
	g := &Graph{index: make(map[string]int, len(waypoints))}
	for _, w := range waypoints {
		if err := g.Add(w); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add appends w to the sequence.
func (g *Graph) Add(w *immersion.Waypoint) error {
	if w == nil {
		return errors.New("nil waypoint")
	}
	if g.index == nil {
		g.index = make(map[string]int)
	}
	if _, exists := g.index[w.Name]; exists {
		return &DuplicateNameError{Name: w.Name}
	}
	g.index[w.Name] = len(g.waypoints)
	g.waypoints = append(g.waypoints, w)
	return nil
}

func (g *Graph) Len() int {
	return len(g.waypoints)
}

// At returns the waypoint at index i, or nil when out of range.
func (g *Graph) At(i int) *immersion.Waypoint {
	if i < 0 || i >= len(g.waypoints) {
		return nil
	}
	return g.waypoints[i]
}

// Waypoints returns a copy of the ordered sequence.
func (g *Graph) Waypoints() []*immersion.Waypoint {
	out := make([]*immersion.Waypoint, len(g.waypoints))
	copy(out, g.waypoints)
	return out
}

// FindByName returns the waypoint and its index, or nil and -1.
func (g *Graph) FindByName(name string) (*immersion.Waypoint, int) {
	i, ok := g.index[name]
	if !ok {
		return nil, -1
	}
	return g.waypoints[i], i
}

// IndexOf returns the index of name, or -1.
func (g *Graph) IndexOf(name string) int {
	_, i := g.FindByName(name)
	return i
}

// NextNavigable scans forward from from+1 for the first waypoint that is not
// a link. Pass -1 to start before the first waypoint.
func (g *Graph) NextNavigable(from int) (*immersion.Waypoint, int) {
	if from < -1 {
		from = -1
	}
	for i := from + 1; i < len(g.waypoints); i++ {
		if g.waypoints[i].Kind.Navigable() {
			return g.waypoints[i], i
		}
	}
	return nil, -1
}

// PreviousNavigable scans backward from from-1 for the first waypoint that
// is neither a link nor a teleporter.
func (g *Graph) PreviousNavigable(from int) (*immersion.Waypoint, int) {
	if from > len(g.waypoints) {
		from = len(g.waypoints)
	}
	for i := from - 1; i >= 0; i-- {
		if g.waypoints[i].Kind.Reversible() {
			return g.waypoints[i], i
		}
	}
	return nil, -1
}

// IsLastNavigable reports whether nothing navigable follows index.
func (g *Graph) IsLastNavigable(index int) bool {
	w, _ := g.NextNavigable(index)
	return w == nil
}

// ResolveEntryPoint returns the index of requested, or 0 when it is absent.
func (g *Graph) ResolveEntryPoint(requested string) int {
	if requested == "" {
		return 0
	}
	if i := g.IndexOf(requested); i >= 0 {
		return i
	}
	return 0
}

// ResolveLink returns the destination of the teleporter at index. The NEXT
// sentinel resolves to the next navigable waypoint at call time.
func (g *Graph) ResolveLink(index int) (*immersion.Waypoint, int) {
	w := g.At(index)
	if w == nil || w.Kind != immersion.KindTeleporter || w.LinkedWaypoint == "" {
		return nil, -1
	}
	if w.LinkedWaypoint == immersion.LinkNext {
		return g.NextNavigable(index)
	}
	return g.FindByName(w.LinkedWaypoint)
}
