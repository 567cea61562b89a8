package opt

import "fmt"

// Node is an external node identifier in [0, NumNodes).
type Node int

// Index is an internal route position handle. Every vehicle owns one start
// and one end index; every other node owns exactly one index.
type Index int

// IndexManager maps nodes to route indices and back. It is immutable after
// construction and safe for concurrent reads.
//
// Layout: nodes that are vehicle starts or plain visits get an index in
// ascending node order (the first vehicle starting at a node reuses that
// node's index); further starts on the same node follow, then one end index
// per vehicle.
type IndexManager struct {
	numNodes    int
	numVehicles int

	indexToNode []Node
	nodeToIndex []Index

	starts []Index
	ends   []Index

	startVehicle []int // by index, -1 when not a start
	endVehicle   []int // by index, -1 when not an end
}

// NewIndexManager builds a manager where every vehicle starts and ends at
// depot.
func NewIndexManager(numNodes, numVehicles int, depot Node) (*IndexManager, error) {
	if numVehicles <= 0 {
		return nil, fmt.Errorf("%w: need at least one vehicle, got %d", ErrInvalidModel, numVehicles)
	}
	starts := make([]Node, numVehicles)
	ends := make([]Node, numVehicles)
	for v := range starts {
		starts[v] = depot
		ends[v] = depot
	}
	return NewIndexManagerWithEnds(numNodes, starts, ends)
}

// NewIndexManagerWithEnds builds a manager with per-vehicle start and end
// nodes.
func NewIndexManagerWithEnds(numNodes int, starts, ends []Node) (*IndexManager, error) {
	if numNodes <= 0 {
		return nil, fmt.Errorf("%w: need at least one node, got %d", ErrInvalidModel, numNodes)
	}
	if len(starts) == 0 || len(starts) != len(ends) {
		return nil, fmt.Errorf("%w: %d starts for %d ends", ErrInvalidModel, len(starts), len(ends))
	}
	isStart := make([]bool, numNodes)
	isEnd := make([]bool, numNodes)
	for _, n := range starts {
		if n < 0 || int(n) >= numNodes {
			return nil, &OutOfRangeError{Kind: "node", Value: int(n), Limit: numNodes}
		}
		isStart[n] = true
	}
	for _, n := range ends {
		if n < 0 || int(n) >= numNodes {
			return nil, &OutOfRangeError{Kind: "node", Value: int(n), Limit: numNodes}
		}
		isEnd[n] = true
	}

	m := &IndexManager{
		numNodes:    numNodes,
		numVehicles: len(starts),
		nodeToIndex: make([]Index, numNodes),
		starts:      make([]Index, len(starts)),
		ends:        make([]Index, len(ends)),
	}
	for i := range m.nodeToIndex {
		m.nodeToIndex[i] = -1
	}
	for n := 0; n < numNodes; n++ {
		if isStart[n] || !isEnd[n] {
			m.nodeToIndex[n] = Index(len(m.indexToNode))
			m.indexToNode = append(m.indexToNode, Node(n))
		}
	}
	claimed := make([]bool, numNodes)
	for v, n := range starts {
		if !claimed[n] {
			claimed[n] = true
			m.starts[v] = m.nodeToIndex[n]
			continue
		}
		m.starts[v] = Index(len(m.indexToNode))
		m.indexToNode = append(m.indexToNode, n)
	}
	for v, n := range ends {
		m.ends[v] = Index(len(m.indexToNode))
		m.indexToNode = append(m.indexToNode, n)
		if m.nodeToIndex[n] < 0 {
			m.nodeToIndex[n] = m.ends[v]
		}
	}

	m.startVehicle = make([]int, len(m.indexToNode))
	m.endVehicle = make([]int, len(m.indexToNode))
	for i := range m.startVehicle {
		m.startVehicle[i] = -1
		m.endVehicle[i] = -1
	}
	for v := range m.starts {
		m.startVehicle[m.starts[v]] = v
		m.endVehicle[m.ends[v]] = v
	}
	return m, nil
}

// NumNodes returns the number of external nodes.
func (m *IndexManager) NumNodes() int { return m.numNodes }

// NumVehicles returns the fleet size.
func (m *IndexManager) NumVehicles() int { return m.numVehicles }

// NumIndices returns the total number of route indices, ends included.
func (m *IndexManager) NumIndices() int { return len(m.indexToNode) }

// Size returns the number of indices that own a successor (all but ends).
func (m *IndexManager) Size() int { return len(m.indexToNode) - m.numVehicles }

// NodeToIndex returns the route index of node. For a node used as a start
// this is the start index of the first vehicle leaving it.
func (m *IndexManager) NodeToIndex(node Node) (Index, error) {
	if node < 0 || int(node) >= m.numNodes {
		return -1, &OutOfRangeError{Kind: "node", Value: int(node), Limit: m.numNodes}
	}
	return m.nodeToIndex[node], nil
}

// IndexToNode returns the node behind a route index.
func (m *IndexManager) IndexToNode(index Index) (Node, error) {
	if !m.validIndex(index) {
		return -1, &OutOfRangeError{Kind: "index", Value: int(index), Limit: len(m.indexToNode)}
	}
	return m.indexToNode[index], nil
}

// Start returns the synthetic start index of vehicle v.
func (m *IndexManager) Start(v int) (Index, error) {
	if v < 0 || v >= m.numVehicles {
		return -1, &OutOfRangeError{Kind: "vehicle", Value: v, Limit: m.numVehicles}
	}
	return m.starts[v], nil
}

// End returns the synthetic end index of vehicle v.
func (m *IndexManager) End(v int) (Index, error) {
	if v < 0 || v >= m.numVehicles {
		return -1, &OutOfRangeError{Kind: "vehicle", Value: v, Limit: m.numVehicles}
	}
	return m.ends[v], nil
}

// IsStart reports whether index is some vehicle's start.
func (m *IndexManager) IsStart(index Index) bool {
	return m.validIndex(index) && m.startVehicle[index] >= 0
}

// IsEnd reports whether index is some vehicle's end.
func (m *IndexManager) IsEnd(index Index) bool {
	return m.validIndex(index) && m.endVehicle[index] >= 0
}

// StartVehicle returns the vehicle starting at index, or -1.
func (m *IndexManager) StartVehicle(index Index) int {
	if !m.validIndex(index) {
		return -1
	}
	return m.startVehicle[index]
}

// EndVehicle returns the vehicle ending at index, or -1.
func (m *IndexManager) EndVehicle(index Index) int {
	if !m.validIndex(index) {
		return -1
	}
	return m.endVehicle[index]
}

// IsVisit reports whether index is a non-synthetic (customer) index.
func (m *IndexManager) IsVisit(index Index) bool {
	return m.validIndex(index) && m.startVehicle[index] < 0 && m.endVehicle[index] < 0
}

func (m *IndexManager) validIndex(index Index) bool {
	return index >= 0 && int(index) < len(m.indexToNode)
}

// node is the unchecked IndexToNode used on hot paths.
func (m *IndexManager) node(index Index) Node { return m.indexToNode[index] }

func (m *IndexManager) start(v int) Index { return m.starts[v] }

func (m *IndexManager) end(v int) Index { return m.ends[v] }
