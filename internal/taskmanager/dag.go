package taskmanager

import "fmt"

// DAG represents a directed acyclic graph of nodes and edges.
// Node order is the order in which nodes were added, which keeps sorting
// deterministic.
type DAG struct {
	order    []string
	nodes    map[string]bool
	edges    map[string][]string // node -> list of nodes it depends on
	inDegree map[string]int      // node -> number of unresolved dependencies
}

// NewDAG creates a new empty DAG.
func NewDAG() *DAG {
	return &DAG{
		nodes:    make(map[string]bool),
		edges:    make(map[string][]string),
		inDegree: make(map[string]int),
	}
}

// AddNode adds a node to the DAG.
func (d *DAG) AddNode(id string) {
	if !d.nodes[id] {
		d.nodes[id] = true
		d.inDegree[id] = 0
		d.order = append(d.order, id)
	}
}

// AddEdge adds a dependency edge from 'from' to 'to' (from depends on to).
func (d *DAG) AddEdge(from, to string) {
	d.AddNode(from)
	d.AddNode(to)

	d.edges[from] = append(d.edges[from], to)
	d.inDegree[from]++
}

// TopologicalSort performs a topological sort and returns the nodes in execution order.
// Returns an error if a cycle is detected.
func (d *DAG) TopologicalSort() ([]string, error) {
	levels, err := d.Levels()
	if err != nil {
		return nil, err
	}
	var result []string
	for _, level := range levels {
		result = append(result, level...)
	}
	return result, nil
}

// Levels groups nodes into generations: every node in a level depends only on
// nodes in earlier levels. Returns an error if a cycle is detected.
func (d *DAG) Levels() ([][]string, error) {
	inDegree := make(map[string]int, len(d.inDegree))
	for node, degree := range d.inDegree {
		inDegree[node] = degree
	}

	dependents := make(map[string][]string)
	for _, node := range d.order {
		for _, dep := range d.edges[node] {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var current []string
	for _, node := range d.order {
		if inDegree[node] == 0 {
			current = append(current, node)
		}
	}

	var levels [][]string
	visited := 0
	for len(current) > 0 {
		levels = append(levels, current)
		visited += len(current)

		var next []string
		for _, node := range current {
			for _, dependent := range dependents[node] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	if visited != len(d.nodes) {
		return nil, fmt.Errorf("circular dependency detected in DAG")
	}

	return levels, nil
}
