// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package sandbox

import "sync"

// ToolStats accumulates per-tool execution counters, fed by every
// Execute call that passes the policy and rate-limit checks, whether
// the run succeeds or fails.
type ToolStats struct {
	Calls     uint64
	Successes uint64
	Failures  uint64
}

type statsTable struct {
	mu    sync.Mutex
	stats map[string]*ToolStats
}

func newStatsTable() *statsTable {
	return &statsTable{stats: make(map[string]*ToolStats)}
}

func (s *statsTable) record(tool string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[tool]
	if !ok {
		st = &ToolStats{}
		s.stats[tool] = st
	}
	st.Calls++
	if success {
		st.Successes++
	} else {
		st.Failures++
	}
}

// Get returns a copy of the named tool's statistics.
func (s *statsTable) Get(tool string) ToolStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[tool]; ok {
		return *st
	}
	return ToolStats{}
}
