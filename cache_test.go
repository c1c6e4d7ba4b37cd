package excache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingHooks captures hook invocations for assertions.
type recordingHooks struct {
	mu        sync.Mutex
	expired   []expiredEvent
	destroyed []string
	healed    []string
}

type expiredEvent struct {
	cache string
	n     int
	lazy  bool
}

func (h *recordingHooks) EntriesExpired(cache string, n int, lazy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expired = append(h.expired, expiredEvent{cache, n, lazy})
}
func (h *recordingHooks) SweepRecovered(string, any) {}
func (h *recordingHooks) SelfHeal(cache, storageKey, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healed = append(h.healed, reason)
}
func (h *recordingHooks) CacheDestroyed(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = append(h.destroyed, name)
}

func (h *recordingHooks) expiredEvents() []expiredEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]expiredEvent(nil), h.expired...)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager("excache://test", ManagerOptions{})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCacheRoundtrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "users", Configuration[string, string]{
		StatisticsEnabled: true,
		SweepInterval:     -1,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	if _, ok, err := c.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("initial Get = (ok=%v, err=%v), want miss", ok, err)
	}
	if err := c.Put(ctx, "u1", "Ada"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, ok, err := c.Get(ctx, "u1"); err != nil || !ok || v != "Ada" {
		t.Fatalf("Get = (%q, %v, %v)", v, ok, err)
	}
	if existed, err := c.Remove(ctx, "u1"); err != nil || !existed {
		t.Fatalf("Remove = (%v, %v)", existed, err)
	}
	if existed, err := c.Remove(ctx, "u1"); err != nil || existed {
		t.Fatalf("second Remove = (%v, %v), want absent", existed, err)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Puts != 1 || s.Removals != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCacheZeroCreationDuration(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "ephemeral", Configuration[string, int]{
		ExpiryPolicy:  CreatedPolicy{Duration: ZeroDuration},
		SweepInterval: -1,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	if err := c.Put(ctx, "k", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("zero-duration entry must be visible to no read")
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("Len = %d, want 0", got)
	}
}

func TestCacheLazyExpiryReportsHook(t *testing.T) {
	ctx := context.Background()
	hooks := &recordingHooks{}
	m := newTestManager(t)
	c, err := ConfigureCache(m, "short", Configuration[string, int]{
		ExpiryPolicy:      CreatedPolicy{Duration: Span(10 * time.Millisecond)},
		SweepInterval:     -1,
		StatisticsEnabled: true,
		Hooks:             hooks,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	if err := c.Put(ctx, "k", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, ok, err := c.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expired entry still readable: ok=%v err=%v", ok, err)
	}
	evs := hooks.expiredEvents()
	if len(evs) != 1 || evs[0] != (expiredEvent{"short", 1, true}) {
		t.Fatalf("expired events = %+v", evs)
	}
	if s := c.Stats(); s.Expiries != 1 || s.Misses != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCacheActiveSweep(t *testing.T) {
	ctx := context.Background()
	hooks := &recordingHooks{}
	m := newTestManager(t)
	c, err := ConfigureCache(m, "swept", Configuration[string, int]{
		ExpiryPolicy:      CreatedPolicy{Duration: Span(10 * time.Millisecond)},
		SweepInterval:     10 * time.Millisecond,
		StatisticsEnabled: true,
		Hooks:             hooks,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(ctx, k, 1); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		done := false
		for _, ev := range hooks.expiredEvents() {
			if !ev.lazy {
				done = true
			}
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweep never reported expired entries; events=%+v", hooks.expiredEvents())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("Len after sweep = %d, want 0", got)
	}
	if s := c.Stats(); s.SweepRuns == 0 {
		t.Fatalf("stats = %+v, want at least one sweep run", s)
	}
}

func TestCacheClosedOperationsFail(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "doomed", Configuration[string, int]{SweepInterval: -1})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !c.IsClosed() {
		t.Fatalf("IsClosed = false after Close")
	}

	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get err = %v, want ErrClosed", err)
	}
	if err := c.Put(ctx, "k", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Put err = %v, want ErrClosed", err)
	}
	if _, err := c.Remove(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Remove err = %v, want ErrClosed", err)
	}
	if err := c.Clear(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Clear err = %v, want ErrClosed", err)
	}
	if _, err := c.Entries(); !errors.Is(err, ErrClosed) {
		t.Fatalf("Entries err = %v, want ErrClosed", err)
	}

	// Metadata stays readable.
	if c.Name() != "doomed" {
		t.Fatalf("Name after close = %q", c.Name())
	}
	if c.Configuration().SweepInterval != -1 {
		t.Fatalf("Configuration lost after close")
	}
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "loaded", Configuration[string, string]{
		StatisticsEnabled: true,
		SweepInterval:     -1,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "loaded", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrLoad(ctx, "k", loader)
		}(i)
	}

	<-started
	// All callers are either in the flight or about to join it; give the
	// stragglers a moment, then let the single load finish.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil || results[i] != "loaded" {
			t.Fatalf("caller %d: (%q, %v)", i, results[i], errs[i])
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader ran %d times, want 1", got)
	}
	if s := c.Stats(); s.Loads != 1 {
		t.Fatalf("stats = %+v, want Loads=1", s)
	}

	// The loaded value is cached for subsequent reads.
	if v, ok, _ := c.Get(ctx, "k"); !ok || v != "loaded" {
		t.Fatalf("Get after load = (%q, %v)", v, ok)
	}
}

func TestGetOrLoadKeysNeverShareAFlight(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "pairs", Configuration[[2]string, string]{SweepInterval: -1})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	// Two distinct keys whose default string renderings collide; the
	// flight map must keep them apart regardless.
	k1 := [2]string{"a", "b c"}
	k2 := [2]string{"a b", "c"}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	var got1 string
	var err1 error
	go func() {
		defer close(done)
		got1, err1 = c.GetOrLoad(ctx, k1, func(context.Context) (string, error) {
			close(started)
			<-release
			return "first", nil
		})
	}()
	<-started

	// With the first load still in flight, the second key must neither
	// join it nor receive its value.
	got2, err2 := c.GetOrLoad(ctx, k2, func(context.Context) (string, error) {
		return "second", nil
	})
	close(release)
	<-done

	if err1 != nil || got1 != "first" {
		t.Fatalf("GetOrLoad(k1) = (%q, %v)", got1, err1)
	}
	if err2 != nil || got2 != "second" {
		t.Fatalf("GetOrLoad(k2) = (%q, %v)", got2, err2)
	}
	if v, ok, _ := c.Get(ctx, k1); !ok || v != "first" {
		t.Fatalf("Get(k1) = (%q, %v)", v, ok)
	}
	if v, ok, _ := c.Get(ctx, k2); !ok || v != "second" {
		t.Fatalf("Get(k2) = (%q, %v)", v, ok)
	}
}

func TestGetOrLoadCountsMissOnce(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "counted", Configuration[string, string]{
		StatisticsEnabled: true,
		SweepInterval:     -1,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	if v, err := c.GetOrLoad(ctx, "k", func(context.Context) (string, error) {
		return "v", nil
	}); err != nil || v != "v" {
		t.Fatalf("GetOrLoad = (%q, %v)", v, err)
	}

	// One logical miss, one load; the in-flight re-check is not a
	// second miss.
	s := c.Stats()
	if s.Misses != 1 || s.Loads != 1 || s.Hits != 0 {
		t.Fatalf("stats = %+v, want Misses=1 Loads=1 Hits=0", s)
	}
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "failing", Configuration[string, int]{
		StatisticsEnabled: true,
		SweepInterval:     -1,
	})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	boom := errors.New("backend down")
	if _, err := c.GetOrLoad(ctx, "k", func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("failed load must not cache a value")
	}
	if s := c.Stats(); s.LoadFailures != 1 {
		t.Fatalf("stats = %+v, want LoadFailures=1", s)
	}
}

func TestCacheEntries(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "iterated", Configuration[string, int]{SweepInterval: -1})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		if err := c.Put(ctx, k, v); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	seq, err := c.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	got := map[string]int{}
	for e := range seq {
		got[e.Key] = e.Value
	}
	if len(got) != len(want) {
		t.Fatalf("iterated %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("entry %q = %d, want %d", k, got[k], v)
		}
	}
}

func TestCacheUnwrap(t *testing.T) {
	m := newTestManager(t)
	c, err := ConfigureCache(m, "wrapped", Configuration[string, int]{SweepInterval: -1})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	nc, ok := m.Lookup("wrapped")
	if !ok {
		t.Fatalf("Lookup miss")
	}

	var impl *Cache[string, int]
	if err := nc.Unwrap(&impl); err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if impl != c {
		t.Fatalf("Unwrap returned a different instance")
	}

	var wrong *Cache[int, int]
	if err := nc.Unwrap(&wrong); !errors.Is(err, ErrUnwrap) {
		t.Fatalf("mismatched target err = %v, want ErrUnwrap", err)
	}
	if err := nc.Unwrap(nil); !errors.Is(err, ErrUnwrap) {
		t.Fatalf("nil target err = %v, want ErrUnwrap", err)
	}
}

func TestCacheStatisticsToggle(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	c, err := ConfigureCache(m, "toggled", Configuration[string, int]{SweepInterval: -1})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}

	// Disabled by default: events are not recorded.
	_ = c.Put(ctx, "k", 1)
	_, _, _ = c.Get(ctx, "k")
	if s := c.Stats(); s.Hits != 0 || s.Puts != 0 {
		t.Fatalf("disabled stats recorded events: %+v", s)
	}

	c.SetStatisticsEnabled(true)
	_, _, _ = c.Get(ctx, "k")
	if s := c.Stats(); s.Hits != 1 {
		t.Fatalf("enabled stats = %+v, want Hits=1", s)
	}
}

func TestCacheTypeMetadata(t *testing.T) {
	m := newTestManager(t)
	c, err := ConfigureCache(m, "typed", Configuration[int, string]{SweepInterval: -1})
	if err != nil {
		t.Fatalf("ConfigureCache: %v", err)
	}
	if c.KeyType().Kind().String() != "int" || c.ValueType().Kind().String() != "string" {
		t.Fatalf("types = (%v, %v)", c.KeyType(), c.ValueType())
	}
}
