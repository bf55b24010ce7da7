package store

import (
	"fmt"
	"sync"

	"github.com/dominikbraun/graph"
)

// CustomStore is a graph.Store that lists vertices and edges in insertion order
// and lets callers update vertex properties in place.
type CustomStore[K comparable, T any] interface {
	graph.Store[K, T]
	UpdateVertex(k K, options ...func(*graph.VertexProperties)) error
	CreatesCycle(source, target K) (bool, error)
}

type edgeKey[K comparable] struct {
	source K
	target K
}

type OrderedStore[K comparable, T any] struct {
	lock             sync.RWMutex
	order            []K
	vertices         map[K]T
	vertexProperties map[K]*graph.VertexProperties

	edgeOrder []edgeKey[K]
	outEdges  map[K]map[K]graph.Edge[K] // source -> target
	inEdges   map[K]map[K]graph.Edge[K] // target -> source
}

func NewOrderedStore[K comparable, T any]() CustomStore[K, T] {
	return &OrderedStore[K, T]{
		vertices:         make(map[K]T),
		vertexProperties: make(map[K]*graph.VertexProperties),
		outEdges:         make(map[K]map[K]graph.Edge[K]),
		inEdges:          make(map[K]map[K]graph.Edge[K]),
	}
}

func (s *OrderedStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}

	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}

	s.order = append(s.order, k)
	s.vertices[k] = t
	s.vertexProperties[k] = &p

	return nil
}

// ListVertices returns the vertex hashes in insertion order.
func (s *OrderedStore[K, T]) ListVertices() ([]K, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hashes := make([]K, len(s.order))
	copy(hashes, s.order)

	return hashes, nil
}

func (s *OrderedStore[K, T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

func (s *OrderedStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v, *s.vertexProperties[k], nil
}

func (s *OrderedStore[K, T]) RemoveVertex(k K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}

	if len(s.inEdges[k]) > 0 || len(s.outEdges[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.inEdges, k)
	delete(s.outEdges, k)
	delete(s.vertices, k)
	delete(s.vertexProperties, k)

	for i, hash := range s.order {
		if hash == k {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return nil
}

// UpdateVertex applies options to the properties of k.
func (s *OrderedStore[K, T]) UpdateVertex(k K, options ...func(*graph.VertexProperties)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, ok := s.vertexProperties[k]
	if !ok {
		return graph.ErrVertexNotFound
	}

	for _, opt := range options {
		opt(p)
	}

	return nil
}

func (s *OrderedStore[K, T]) AddEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.outEdges[sourceHash]; !ok {
		s.outEdges[sourceHash] = make(map[K]graph.Edge[K])
	}

	if _, ok := s.outEdges[sourceHash][targetHash]; !ok {
		s.edgeOrder = append(s.edgeOrder, edgeKey[K]{source: sourceHash, target: targetHash})
	}

	s.outEdges[sourceHash][targetHash] = edge

	if _, ok := s.inEdges[targetHash]; !ok {
		s.inEdges[targetHash] = make(map[K]graph.Edge[K])
	}

	s.inEdges[targetHash][sourceHash] = edge

	return nil
}

func (s *OrderedStore[K, T]) UpdateEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	if _, err := s.Edge(sourceHash, targetHash); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.outEdges[sourceHash][targetHash] = edge
	s.inEdges[targetHash][sourceHash] = edge

	return nil
}

func (s *OrderedStore[K, T]) RemoveEdge(sourceHash, targetHash K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.inEdges[targetHash], sourceHash)
	delete(s.outEdges[sourceHash], targetHash)

	for i, key := range s.edgeOrder {
		if key.source == sourceHash && key.target == targetHash {
			s.edgeOrder = append(s.edgeOrder[:i], s.edgeOrder[i+1:]...)

			break
		}
	}

	return nil
}

func (s *OrderedStore[K, T]) Edge(sourceHash, targetHash K) (graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	edge, ok := s.outEdges[sourceHash][targetHash]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

// ListEdges returns the edges in insertion order.
func (s *OrderedStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[K], 0, len(s.edgeOrder))
	for _, key := range s.edgeOrder {
		res = append(res, s.outEdges[key.source][key.target])
	}

	return res, nil
}

// CreatesCycle reports whether an edge from source to target would close a cycle.
// It walks inEdges instead of building a predecessor map.
func (s *OrderedStore[K, T]) CreatesCycle(source, target K) (bool, error) {
	if _, _, err := s.Vertex(source); err != nil {
		return false, fmt.Errorf("could not get vertex with hash %v: %w", source, err)
	}

	if _, _, err := s.Vertex(target); err != nil {
		return false, fmt.Errorf("could not get vertex with hash %v: %w", target, err)
	}

	if source == target {
		return true, nil
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	stack := []K{source}
	visited := make(map[K]struct{})

	for len(stack) > 0 {
		currentHash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[currentHash]; ok {
			continue
		}

		// target is already an ancestor of source
		if currentHash == target {
			return true, nil
		}

		visited[currentHash] = struct{}{}

		for adjacency := range s.inEdges[currentHash] {
			stack = append(stack, adjacency)
		}
	}

	return false, nil
}
