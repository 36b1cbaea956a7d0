package topology

import (
	"fmt"
	"sort"
	"sync"
)

// ErrNodeNotFound is returned when a node ID is not present in the store.
type ErrNodeNotFound struct {
	ID string
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("topology: node %s not found", e.ID)
}

// Store owns all infrastructure nodes and dependency edges for one topology
// instance. Node health and load are mutated in place by the cascade
// simulator and by stabilization actions, so the store stays the single
// authoritative view of infrastructure state.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	edges     map[string]*Edge // keyed source->target
	outgoing  map[string][]string
	incoming  map[string][]string
	districts map[string][]string
	baseline  map[string]nodeState
}

// nodeState is the mutable slice of a node captured for baseline restore.
type nodeState struct {
	health float64
	load   float64
}

// NewStore creates an empty topology store.
func NewStore() *Store {
	return &Store{
		nodes:     make(map[string]*Node),
		edges:     make(map[string]*Edge),
		outgoing:  make(map[string][]string),
		incoming:  make(map[string][]string),
		districts: make(map[string][]string),
	}
}

func edgeKey(source, target string) string {
	return source + "->" + target
}

// AddNode registers a node. Re-adding an existing ID is rejected so that
// topology files with duplicate entries fail loudly at load time.
func (s *Store) AddNode(node *Node) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("topology: node must have an id")
	}
	if !node.Type.Valid() {
		return fmt.Errorf("topology: node %s has unknown type %q", node.ID, node.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("topology: node %s already exists", node.ID)
	}
	s.nodes[node.ID] = node
	s.districts[node.District] = append(s.districts[node.District], node.ID)
	return nil
}

// AddEdge registers a directed dependency edge. Both endpoints must already
// exist; a dangling edge is a configuration error, not something the
// simulator should tolerate mid-run.
func (s *Store) AddEdge(edge *Edge) error {
	if edge == nil {
		return fmt.Errorf("topology: edge must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[edge.SourceID]; !ok {
		return fmt.Errorf("topology: edge %s->%s references unknown source: %w",
			edge.SourceID, edge.TargetID, &ErrNodeNotFound{ID: edge.SourceID})
	}
	if _, ok := s.nodes[edge.TargetID]; !ok {
		return fmt.Errorf("topology: edge %s->%s references unknown target: %w",
			edge.SourceID, edge.TargetID, &ErrNodeNotFound{ID: edge.TargetID})
	}

	key := edgeKey(edge.SourceID, edge.TargetID)
	if _, exists := s.edges[key]; exists {
		return fmt.Errorf("topology: edge %s already exists", key)
	}
	s.edges[key] = edge
	s.outgoing[edge.SourceID] = append(s.outgoing[edge.SourceID], edge.TargetID)
	s.incoming[edge.TargetID] = append(s.incoming[edge.TargetID], edge.SourceID)
	return nil
}

// Node returns the node with the given ID.
func (s *Store) Node(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, &ErrNodeNotFound{ID: id}
	}
	return node, nil
}

// Edge returns the dependency edge from source to target, if present.
func (s *Store) Edge(source, target string) (*Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[edgeKey(source, target)]
	return edge, ok
}

// Successors returns the IDs of nodes that depend on the given node.
func (s *Store) Successors(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.outgoing[id]...)
}

// Predecessors returns the IDs of nodes the given node depends on.
func (s *Store) Predecessors(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.incoming[id]...)
}

// NodesByDistrict returns the node IDs belonging to a district.
func (s *Store) NodesByDistrict(district string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.districts[district]...)
}

// Districts returns the known district names, sorted for stable iteration.
func (s *Store) Districts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.districts))
	for d := range s.districts {
		names = append(names, d)
	}
	sort.Strings(names)
	return names
}

// NodeCount returns the total number of nodes in the topology.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

// NodeIDs returns all node IDs, sorted for stable iteration. Stable order
// matters for reproducible simulations with a seeded random source.
func (s *Store) NodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns copies of every node for read-only consumers such as the
// topology API endpoint. Mutating a snapshot has no effect on the store.
func (s *Store) Snapshot() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// SetHealth sets a node's health score, clamped to [0,1].
func (s *Store) SetHealth(id string, health float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return &ErrNodeNotFound{ID: id}
	}
	if health < 0 {
		health = 0
	} else if health > 1 {
		health = 1
	}
	node.HealthScore = health
	return nil
}

// SetLoad sets a node's current load. Load above capacity is preserved as an
// overload condition; only display helpers clamp it.
func (s *Store) SetLoad(id string, load float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return &ErrNodeNotFound{ID: id}
	}
	if load < 0 {
		load = 0
	}
	node.CurrentLoad = load
	return nil
}

// HealthyPredecessorCount returns how many of the node's supply sources are
// still above the failure threshold. Used by the redundancy protection rule.
func (s *Store) HealthyPredecessorCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, pred := range s.incoming[id] {
		if node, ok := s.nodes[pred]; ok && !node.Failed() {
			count++
		}
	}
	return count
}

// MarkBaseline captures every node's current health and load. A later
// RestoreBaseline rolls the topology back to this point, which is how
// consecutive drills each start from an undamaged grid.
func (s *Store) MarkBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseline = make(map[string]nodeState, len(s.nodes))
	for id, node := range s.nodes {
		s.baseline[id] = nodeState{health: node.HealthScore, load: node.CurrentLoad}
	}
}

// RestoreBaseline resets node health and load to the captured baseline.
// Without a prior MarkBaseline it is a no-op.
func (s *Store) RestoreBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, state := range s.baseline {
		if node, ok := s.nodes[id]; ok {
			node.HealthScore = state.health
			node.CurrentLoad = state.load
		}
	}
}

// DistrictMeanHealth returns the mean health score across a district's
// nodes, or 0 if the district is unknown.
func (s *Store) DistrictMeanHealth(district string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.districts[district]
	if len(ids) == 0 {
		return 0
	}
	total := 0.0
	for _, id := range ids {
		total += s.nodes[id].HealthScore
	}
	return total / float64(len(ids))
}
