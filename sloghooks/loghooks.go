package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/ternvale/excache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery  uint64
	SelfHealEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr  atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ excache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EntriesExpired(cache string, n int, lazy bool) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("excache.entries_expired",
		"cache", cache,
		"count", n,
		"lazy", lazy)
}

func (h *Hooks) SweepRecovered(cache string, v any) {
	if h.l == nil {
		return
	}
	h.l.Error("excache.sweep_recovered",
		"cache", cache,
		"panic", v)
}

func (h *Hooks) SelfHeal(cache, storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("excache.self_heal",
		"cache", cache,
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) CacheDestroyed(name string) {
	if h.l == nil {
		return
	}
	h.l.Info("excache.cache_destroyed",
		"cache", name)
}
