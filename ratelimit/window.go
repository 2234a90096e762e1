// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package ratelimit implements the rolling (counter, window_start_ts)
// limiter shared by the gossip overlay and swarm consensus message
// handlers (§4.F, §4.G).
package ratelimit

import "time"

// Window allows at most Limit events per Period, resetting once Period
// has elapsed since the window began.
type Window struct {
	limit       int
	period      time.Duration
	count       int
	windowStart time.Time
}

// New builds a window permitting limit events per period.
func New(limit int, period time.Duration) *Window {
	return &Window{limit: limit, period: period}
}

// Allow reports whether one more event may proceed at now, advancing or
// resetting the window as needed.
func (w *Window) Allow(now time.Time) bool {
	if now.Sub(w.windowStart) >= w.period {
		w.windowStart = now
		w.count = 0
	}
	if w.count >= w.limit {
		return false
	}
	w.count++
	return true
}

// Count reports the number of events admitted in the current window.
func (w *Window) Count() int { return w.count }
