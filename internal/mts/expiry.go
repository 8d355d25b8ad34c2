package mts

import (
	"sort"
	"time"
)

// DefaultTTL は最後のサンプルからスロットを強制的に回収するまでの時間
const DefaultTTL = 120 * time.Second

type expirationEntry struct {
	slot     int
	lastSeen int64 // epoch 秒
}

// ExpirationTracker はポインタごとの最終受信時刻を記録し、
// up イベントを送らずに途絶えたポインタのスロットを回収する
type ExpirationTracker struct {
	ttl     time.Duration
	entries map[PointerKey]expirationEntry
}

func NewExpirationTracker(ttl time.Duration) *ExpirationTracker {
	return &ExpirationTracker{
		ttl:     ttl,
		entries: make(map[PointerKey]expirationEntry),
	}
}

// Touch は最終受信時刻を更新する
func (t *ExpirationTracker) Touch(key PointerKey, slot int, now time.Time) {
	t.entries[key] = expirationEntry{slot: slot, lastSeen: now.Unix()}
}

// Forget はポインタの記録を削除する
func (t *ExpirationTracker) Forget(key PointerKey) {
	delete(t.entries, key)
}

// IsExpired は最終受信から TTL を超えているかどうかを返す
func (t *ExpirationTracker) IsExpired(key PointerKey, now time.Time) bool {
	entry, ok := t.entries[key]
	if !ok {
		return false
	}
	return now.Unix()-entry.lastSeen > int64(t.ttl/time.Second)
}

// SweepIfExpired は期限切れの場合に release を呼び出して記録を削除する。
// release は解放イベント列の送信まで行うこと
func (t *ExpirationTracker) SweepIfExpired(key PointerKey, now time.Time, release func(slot int)) bool {
	if !t.IsExpired(key, now) {
		return false
	}
	entry := t.entries[key]
	delete(t.entries, key)
	release(entry.slot)
	return true
}

// Sweep は期限切れのポインタをスロット番号順に回収し、回収したポインタを返す
func (t *ExpirationTracker) Sweep(now time.Time, release func(key PointerKey, slot int)) []PointerKey {
	var expired []PointerKey
	for key := range t.entries {
		if t.IsExpired(key, now) {
			expired = append(expired, key)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return t.entries[expired[i]].slot < t.entries[expired[j]].slot
	})
	for _, key := range expired {
		t.SweepIfExpired(key, now, func(slot int) { release(key, slot) })
	}
	return expired
}

// Len は記録しているポインタの数
func (t *ExpirationTracker) Len() int {
	return len(t.entries)
}
