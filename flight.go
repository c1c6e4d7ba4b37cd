package excache

import "sync"

// flightGroup deduplicates concurrent work per key. Flights are keyed
// by K itself, so distinct keys never share a flight no matter how
// their values happen to format or hash.
type flightGroup[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*flight[V]
}

type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// do runs fn once per key among concurrent callers; callers that join a
// live flight block until it finishes and receive the leader's result.
func (g *flightGroup[K, V]) do(key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if f, ok := g.m[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err
	}
	if g.m == nil {
		g.m = make(map[K]*flight[V])
	}
	f := &flight[V]{done: make(chan struct{})}
	g.m[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()
	close(f.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	return f.val, f.err
}
