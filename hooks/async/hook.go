// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/ternvale/excache"
//	"github.com/ternvale/excache/hooks/async"
//	"github.com/ternvale/excache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    ExpiredEvery:  10, // sample logs: ~every 10th expiry batch
//	    SelfHealEvery: 1,  // log every self-heal
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := excache.ConfigureCache[string, User](mgr, "users", excache.Configuration[string, User]{
//	    ExpiryPolicy: excache.CreatedPolicy{Duration: ttl},
//	    Hooks:        hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/ternvale/excache"
)

type Hooks struct {
	inner excache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ excache.Hooks = (*Hooks)(nil)

func New(inner excache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) EntriesExpired(cache string, n int, lazy bool) {
	h.try(func() { h.inner.EntriesExpired(cache, n, lazy) })
}
func (h *Hooks) SweepRecovered(cache string, v any) {
	h.try(func() { h.inner.SweepRecovered(cache, v) })
}
func (h *Hooks) SelfHeal(cache, k, r string) { h.try(func() { h.inner.SelfHeal(cache, k, r) }) }
func (h *Hooks) CacheDestroyed(name string)  { h.try(func() { h.inner.CacheDestroyed(name) }) }
