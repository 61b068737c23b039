package engine

import "github.com/driplinehq/dripline/pkg/models"

// reachableSet is the pruning memory of a single Execute invocation. It
// starts unconstrained (every node eligible) and becomes constrained the
// first time a branch decision unions a reachable set into it. Within a run
// the set only ever grows; it is never persisted and is rebuilt from scratch
// on every invocation.
type reachableSet struct {
	constrained bool
	ids         map[string]struct{}
}

func newReachableSet() *reachableSet {
	return &reachableSet{ids: make(map[string]struct{})}
}

// Allows reports whether a node with the given graph-local id may execute.
func (s *reachableSet) Allows(graphID string) bool {
	if !s.constrained {
		return true
	}

	_, ok := s.ids[graphID]

	return ok
}

// Union adds the given node ids and constrains the set if it was not already.
func (s *reachableSet) Union(ids map[string]struct{}) {
	s.constrained = true

	for id := range ids {
		s.ids[id] = struct{}{}
	}
}

// reachableFrom returns every node id reachable from start (inclusive) over
// the enabled edge set, by breadth-first traversal visiting each node once.
// O(V+E) per call; workflow graphs are tens of nodes.
func reachableFrom(start string, edges []*models.WorkflowEdge) map[string]struct{} {
	outgoing := make(map[string][]string, len(edges))

	for _, edge := range edges {
		if !edge.Enabled {
			continue
		}

		outgoing[edge.SourceID] = append(outgoing[edge.SourceID], edge.TargetID)
	}

	visited := map[string]struct{}{start: {}}
	frontier := []string{start}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, next := range outgoing[current] {
			if _, seen := visited[next]; seen {
				continue
			}

			visited[next] = struct{}{}
			frontier = append(frontier, next)
		}
	}

	return visited
}
