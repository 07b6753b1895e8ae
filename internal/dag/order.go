package dag

import (
	"container/heap"
	"fmt"
)

type stringMinHeap []string

func (h stringMinHeap) Len() int           { return len(h) }
func (h stringMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h stringMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *stringMinHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *stringMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder returns every node id such that each node comes after all
// of its dependencies. Among nodes that are ready at the same time the
// lexicographically smallest id goes first, so the order is a pure function
// of the graph's contents.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	ready := &stringMinHeap{}
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
		if len(n.deps) == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)
		for depID := range g.nodes[id].dependents {
			indegree[depID]--
			if indegree[depID] == 0 {
				heap.Push(ready, depID)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("%w: ordered %d of %d nodes", ErrCycle, len(order), len(g.nodes))
	}
	return order, nil
}
