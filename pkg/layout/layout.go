// Package layout computes deterministic render positions for workflow DAGs.
// The arrangement is a simple leveled stacking: a node's level is one past
// the deepest of its dependencies, so dependents always land after the
// nodes they depend on. No crossing minimization is attempted.
package layout

import (
	"sort"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/pkg/errors"
)

// ErrCycle is returned when the declared dependencies contain a cycle.
var ErrCycle = errors.New("cycle detected in dependencies")

// Order computes a dependency-respecting execution order over the nodes
// using Kahn's algorithm. Ties are broken by node ID so the result is
// deterministic. Returns an error on unknown dependencies or cycles.
func Order(nodes []models.DAGNode) ([]string, error) {
	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}

	dependents := make(map[string][]string) // dep -> nodes that wait on it
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = len(n.Dependencies)
		for _, dep := range n.Dependencies {
			if _, ok := known[dep]; !ok {
				return nil, errors.Errorf("dependency '%s' for '%s' not defined", dep, n.ID)
			}
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	sort.Strings(queue)

	var sorted []string
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		sorted = append(sorted, curr)

		next := dependents[curr]
		sort.Strings(next)
		for _, dependent := range next {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	if len(sorted) != len(nodes) {
		return nil, ErrCycle
	}
	return sorted, nil
}

// Levels groups nodes into render rows. Row i contains nodes whose longest
// dependency chain has length i, so every node renders strictly after all
// of its dependencies. Nodes within a row are sorted by ID.
func Levels(nodes []models.DAGNode) ([][]models.DAGNode, error) {
	order, err := Order(nodes)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.DAGNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	depth := make(map[string]int, len(nodes))
	maxDepth := 0
	for _, id := range order {
		d := 0
		for _, dep := range byID[id].Dependencies {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	rows := make([][]models.DAGNode, maxDepth+1)
	for _, id := range order {
		rows[depth[id]] = append(rows[depth[id]], byID[id])
	}
	for _, row := range rows {
		sort.Slice(row, func(i, j int) bool { return row[i].ID < row[j].ID })
	}
	return rows, nil
}

// Validate checks that the node set forms a well-defined DAG: unique IDs,
// known dependencies, no cycles.
func Validate(nodes []models.DAGNode) error {
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return errors.New("node with empty ID")
		}
		if _, ok := seen[n.ID]; ok {
			return errors.Errorf("duplicate node ID '%s'", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	_, err := Order(nodes)
	return err
}
