package decimate

import (
	"errors"
	"fmt"

	"github.com/Faultbox/lodtiler/pkg/halfedge"
)

// Engine errors.
var (
	ErrUnknownPolicy    = errors.New("decimate: unknown policy")
	ErrUnknownPlacement = errors.New("decimate: unknown placement")
	ErrVerify           = errors.New("decimate: mesh check failed after collapse")
)

// Policy names a built-in Selector.
type Policy string

const (
	PolicyShortestEdge Policy = "shortest_edge"
	PolicyQuadric      Policy = "quadric"
)

// Placement decides where the surviving vertex goes.
type Placement string

const (
	PlaceKeepStart Placement = "keep_start"
	PlaceMidpoint  Placement = "midpoint"
	// PlaceOptimal uses the selector's own target when it implements
	// Placer, and the midpoint otherwise.
	PlaceOptimal Placement = "optimal"
)

// ParsePolicy returns the named policy. Empty means shortest edge.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyShortestEdge, nil
	case PolicyShortestEdge, PolicyQuadric:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// ParsePlacement returns the named placement. Empty means midpoint.
func ParsePlacement(s string) (Placement, error) {
	switch p := Placement(s); p {
	case "":
		return PlaceMidpoint, nil
	case PlaceKeepStart, PlaceMidpoint, PlaceOptimal:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlacement, s)
	}
}

// Options configures an Engine.
type Options struct {
	Policy    Policy
	Selector  Selector // overrides Policy when set
	Placement Placement

	// MaxNormalDeviation is the largest allowed change of a face normal, in
	// degrees. Values outside (0, 180] are treated as 90.
	MaxNormalDeviation float64
	// MinFaceArea rejects collapses leaving a face with this area or less.
	MinFaceArea float64
	// PreserveBoundary keeps open edges in place so adjacent tiles still meet.
	PreserveBoundary bool
	// Verify runs Mesh.Check after every collapse.
	Verify bool
}

// DefaultOptions returns shortest-edge collapse to the midpoint.
func DefaultOptions() Options {
	return Options{
		Policy:             PolicyShortestEdge,
		Placement:          PlaceMidpoint,
		MaxNormalDeviation: 60,
	}
}

// State is the engine lifecycle.
type State int

const (
	// StateActive means collapses may still be attempted.
	StateActive State = iota
	// StateTargetReached means the last Run met its target. Running again
	// with a lower target continues from here.
	StateTargetReached
	// StateExhausted means no remaining candidate passes validation. It is
	// a normal end state, not a failure.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTargetReached:
		return "target_reached"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Target is one level-of-detail goal. Zero fields are ignored; with both
// zero the engine runs until exhausted.
type Target struct {
	Triangles int     // stop at or below this many faces
	MaxError  float64 // stop before the first collapse costing more
}

// Result reports one Run.
type Result struct {
	State      State
	Triangles  int
	Vertices   int
	Collapses  int
	MaxCost    float64
	Rejections Rejections
}

// Engine drives repeated collapses over one mesh. It is not safe for
// concurrent use.
type Engine struct {
	mesh     *halfedge.Mesh
	opts     Options
	selector Selector
	state    State

	// pending holds an edge popped but not collapsed because it exceeded
	// the error target of the previous Run.
	pending     halfedge.HalfEdgeID
	pendingCost float64
}

// New prepares an engine for m and scores all edges.
func New(m *halfedge.Mesh, opts Options) (*Engine, error) {
	placement, err := ParsePlacement(string(opts.Placement))
	if err != nil {
		return nil, err
	}
	opts.Placement = placement
	sel := opts.Selector
	if sel == nil {
		policy, err := ParsePolicy(string(opts.Policy))
		if err != nil {
			return nil, err
		}
		if policy == PolicyQuadric {
			sel = NewQuadricError(placement == PlaceOptimal)
		} else {
			sel = NewShortestEdge()
		}
	}
	if opts.MaxNormalDeviation <= 0 || opts.MaxNormalDeviation > 180 {
		opts.MaxNormalDeviation = 90
	}

	sel.Init(m)
	return &Engine{
		mesh:     m,
		opts:     opts,
		selector: sel,
		pending:  halfedge.NoHalfEdge,
	}, nil
}

// State returns the state after the last Run.
func (e *Engine) State() State { return e.state }

// Mesh returns the mesh being simplified.
func (e *Engine) Mesh() *halfedge.Mesh { return e.mesh }

// Compact emits the current mesh as flat buffers.
func (e *Engine) Compact() *halfedge.Buffers { return e.mesh.Compact() }

// Run collapses edges until target is met or no valid candidate remains.
// An error is returned only when Options.Verify finds a broken mesh.
func (e *Engine) Run(target Target) (Result, error) {
	m := e.mesh
	var res Result
	finish := func(s State) (Result, error) {
		e.state = s
		res.State = s
		res.Triangles = m.ActiveFaceCount()
		res.Vertices = m.ActiveVertexCount()
		return res, nil
	}

	if e.state == StateExhausted {
		return finish(StateExhausted)
	}
	e.state = StateActive

	for {
		if target.Triangles > 0 && m.ActiveFaceCount() <= target.Triangles {
			return finish(StateTargetReached)
		}

		edge, cost, ok := e.next()
		if !ok {
			return finish(StateExhausted)
		}
		if target.MaxError > 0 && cost > target.MaxError {
			e.pending, e.pendingCost = edge, cost
			return finish(StateTargetReached)
		}

		c, rej := e.prepare(edge)
		if rej != Accepted {
			res.Rejections[rej]++
			continue
		}

		before := m.ActiveFaceCount()
		touched := Collapse(m, c)
		e.selector.Update(m, c, touched)
		res.Collapses++
		if cost > res.MaxCost {
			res.MaxCost = cost
		}

		if e.opts.Verify {
			if err := m.Check(); err != nil {
				e.state = StateExhausted
				return res, fmt.Errorf("%w: collapse of edge %d: %w", ErrVerify, edge, err)
			}
			if m.ActiveFaceCount() > before {
				e.state = StateExhausted
				return res, fmt.Errorf("%w: face count grew from %d to %d", ErrVerify, before, m.ActiveFaceCount())
			}
		}
	}
}

func (e *Engine) next() (halfedge.HalfEdgeID, float64, bool) {
	if e.pending != halfedge.NoHalfEdge {
		edge, cost := e.pending, e.pendingCost
		e.pending = halfedge.NoHalfEdge
		if e.mesh.IsActiveEdge(edge) {
			return edge, cost, true
		}
	}
	return e.selector.Next(e.mesh)
}

// prepare validates edge in its own direction and then reversed, so either
// endpoint may be the one removed.
func (e *Engine) prepare(edge halfedge.HalfEdgeID) (*Candidate, Rejection) {
	rej := RejectStale
	for _, dir := range [2]halfedge.HalfEdgeID{edge, e.mesh.Twin(edge)} {
		if dir == halfedge.NoHalfEdge {
			continue
		}
		c, ok := NewCandidate(e.mesh, dir)
		if !ok {
			continue
		}
		e.place(c)
		rej = Validate(e.mesh, c, e.opts)
		if rej == Accepted {
			return c, Accepted
		}
	}
	return nil, rej
}

func (e *Engine) place(c *Candidate) {
	if e.opts.Placement == PlaceOptimal {
		if p, ok := e.selector.(Placer); ok {
			c.PlaceAt(e.mesh, p.Target(e.mesh, c))
			return
		}
		c.Place(e.mesh, PlaceMidpoint)
		return
	}
	c.Place(e.mesh, e.opts.Placement)
}
