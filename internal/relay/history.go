package relay

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"walletlink/internal/domain"
	"walletlink/internal/domain/interfaces"
	"walletlink/internal/protocol/rpc"
)

// HistoryRecord is what the interactor remembers about one JSON-RPC id.
type HistoryRecord struct {
	ID        uint64       `cbor:"id"`
	Topic     domain.Topic `cbor:"topic"`
	Method    string       `cbor:"method"`
	Params    []byte       `cbor:"params"`
	Outbound  bool         `cbor:"outbound"`
	Responded bool         `cbor:"responded"`
	CreatedAt time.Time    `cbor:"createdAt"`
}

const (
	// DefaultHistoryRetention outlives every route TTL and the relay's
	// own redelivery window.
	DefaultHistoryRetention = 24 * time.Hour

	pruneInterval = 10 * time.Minute
)

// History correlates responses with the requests they answer and
// remembers inbound request ids to drop redeliveries. Records older than
// the retention are pruned as new inbound requests arrive.
type History struct {
	store  interfaces.Store[HistoryRecord]
	retain time.Duration
	now    func() time.Time

	mu         sync.Mutex
	lastPruned time.Time
}

// NewHistory returns a History persisted in store.
func NewHistory(store interfaces.Store[HistoryRecord]) *History {
	return &History{store: store, retain: DefaultHistoryRetention, now: time.Now}
}

// Prune deletes records created before the retention window and returns
// how many were removed.
func (h *History) Prune(ctx context.Context) (int, error) {
	cutoff := h.now().Add(-h.retain)
	keys, err := h.store.Keys(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, k := range keys {
		rec, ok, err := h.store.Get(ctx, k)
		if err != nil {
			return removed, err
		}
		if !ok || !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := h.store.Delete(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// maybePrune runs Prune at most once per pruneInterval.
func (h *History) maybePrune(ctx context.Context) error {
	h.mu.Lock()
	now := h.now()
	if now.Sub(h.lastPruned) < pruneInterval {
		h.mu.Unlock()
		return nil
	}
	h.lastPruned = now
	h.mu.Unlock()
	_, err := h.Prune(ctx)
	return err
}

func outKey(id uint64) string { return "out:" + strconv.FormatUint(id, 10) }

func inKey(topic domain.Topic, id uint64) string {
	return "in:" + string(topic) + ":" + strconv.FormatUint(id, 10)
}

// RecordOutbound remembers an outbound request.
func (h *History) RecordOutbound(ctx context.Context, topic domain.Topic, req rpc.Request) error {
	return h.store.Set(ctx, outKey(req.ID), HistoryRecord{
		ID:        req.ID,
		Topic:     topic,
		Method:    req.Method,
		Params:    req.Params,
		Outbound:  true,
		CreatedAt: h.now(),
	})
}

// Forget drops an outbound record, used when the publish failed.
func (h *History) Forget(ctx context.Context, id uint64) error {
	return h.store.Delete(ctx, outKey(id))
}

// ResolveResponse returns the request a response answers and marks it
// answered. ok is false for unknown ids, topic mismatches and repeats.
func (h *History) ResolveResponse(ctx context.Context, topic domain.Topic, id uint64) (rpc.Request, bool, error) {
	rec, found, err := h.store.Get(ctx, outKey(id))
	if err != nil || !found {
		return rpc.Request{}, false, err
	}
	if rec.Topic != topic || rec.Responded {
		return rpc.Request{}, false, nil
	}
	rec.Responded = true
	if err := h.store.Set(ctx, outKey(id), rec); err != nil {
		return rpc.Request{}, false, err
	}
	return rpc.Request{
		ID:      rec.ID,
		JSONRPC: rpc.Version,
		Method:  rec.Method,
		Params:  json.RawMessage(rec.Params),
	}, true, nil
}

// FirstInbound records an inbound request and reports whether it is new.
func (h *History) FirstInbound(ctx context.Context, topic domain.Topic, req rpc.Request) (bool, error) {
	if err := h.maybePrune(ctx); err != nil {
		return false, err
	}
	key := inKey(topic, req.ID)
	_, seen, err := h.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}
	return true, h.store.Set(ctx, key, HistoryRecord{
		ID:        req.ID,
		Topic:     topic,
		Method:    req.Method,
		CreatedAt: h.now(),
	})
}
