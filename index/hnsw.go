// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package index implements the in-memory hierarchical navigable
// small-world (HNSW) approximate-nearest-neighbor graph over grain
// vectors (§4.D). The index owns only grain IDs and vectors; it is
// rebuildable from the Store and never the source of truth.
package index

import (
	"container/heap"
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/synapsenet/core/grain"
)

var (
	ErrIndexFull         = errors.New("index: capacity exceeded")
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
	ErrNotInIndex        = errors.New("index: grain not present")
)

// Config bounds the HNSW graph's shape (§4.D).
type Config struct {
	Dim            int
	MaxElements    int
	M              int // connections per layer
	EfConstruction int
}

// DefaultConfig returns sane defaults for a modest single-node corpus.
func DefaultConfig(dim int) Config {
	return Config{
		Dim:            dim,
		MaxElements:    1_000_000,
		M:              16,
		EfConstruction: 200,
	}
}

// Result is one hit from a similarity search, ordered by Similarity desc.
type Result struct {
	GrainID    grain.ID
	Similarity float32
}

type element struct {
	id      grain.ID
	vec     []float32 // unit-normalized
	layers  [][]grain.ID
	seq     int // insertion order, for deterministic tie-breaking
}

// Index is a reader/writer-locked HNSW graph: search is a read, add and
// rebuild are writes; writes block searches, searches never block each
// other (§5).
type Index struct {
	mu sync.RWMutex

	cfg   Config
	rnd   *rand.Rand
	elems map[grain.ID]*element
	order []grain.ID // insertion order; its length sizes the visited bitset
	entry grain.ID
	maxLv int
	seq   int
}

// New creates an empty index bound to cfg.
func New(cfg Config) *Index {
	return &Index{
		cfg:   cfg,
		rnd:   rand.New(rand.NewSource(0)),
		elems: make(map[grain.ID]*element),
	}
}

func normalize(vec []float32) []float32 {
	var sumsq float64
	for _, v := range vec {
		sumsq += float64(v) * float64(v)
	}
	if sumsq == 0 {
		return append([]float32(nil), vec...)
	}
	norm := float32(1 / math.Sqrt(sumsq))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * norm
	}
	return out
}

// cosineSim assumes both vectors are already unit-normalized, so cosine
// similarity reduces to a plain dot product (§4.D).
func cosineSim(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func (idx *Index) randomLevel() int {
	// Standard HNSW level assignment: exponential distribution with
	// mL = 1/ln(M), capped to keep layer counts sane on small indices.
	mL := 1.0 / math.Log(float64(idx.cfg.M))
	level := int(math.Floor(-math.Log(idx.rnd.Float64()) * mL))
	if level > 32 {
		level = 32
	}
	return level
}

// Add inserts a grain's vector into the graph.
func (idx *Index) Add(g *grain.Grain) error {
	if len(g.Vec) != idx.cfg.Dim {
		return ErrDimensionMismatch
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.elems[g.ID]; exists {
		return nil // idempotent re-add
	}
	if len(idx.elems) >= idx.cfg.MaxElements {
		return ErrIndexFull
	}

	level := idx.randomLevel()
	el := &element{
		id:     g.ID,
		vec:    normalize(g.Vec),
		layers: make([][]grain.ID, level+1),
		seq:    idx.seq,
	}
	idx.seq++

	if len(idx.elems) == 0 {
		idx.elems[g.ID] = el
		idx.order = append(idx.order, g.ID)
		idx.entry = g.ID
		idx.maxLv = level
		return nil
	}

	entry := idx.entry
	// Descend from the current top layer to level+1, greedily narrowing
	// to the single closest element at each layer (standard HNSW descent).
	for lc := idx.maxLv; lc > level; lc-- {
		entry = idx.greedyClosest(el.vec, entry, lc)
	}

	// From level down to 0, find EfConstruction candidates and connect
	// the new element to its M nearest neighbors at each layer. The new
	// element is registered first so connect can weigh it when trimming.
	idx.elems[g.ID] = el
	for lc := min(level, idx.maxLv); lc >= 0; lc-- {
		candidates := idx.searchLayer(el.vec, entry, idx.cfg.EfConstruction, lc)
		neighbors := selectNeighbors(candidates, idx.cfg.M)
		el.layers[lc] = neighbors
		for _, nb := range neighbors {
			idx.connect(nb, g.ID, lc)
		}
		if len(candidates) > 0 {
			entry = candidates[0].id
		}
	}

	idx.order = append(idx.order, g.ID)
	if level > idx.maxLv {
		idx.maxLv = level
		idx.entry = g.ID
	}
	return nil
}

// connect adds the edge from -> to at layer (Add sets the reverse edge
// in the new element's own list), trimming from's neighbor list back
// down to M (2M at layer 0) by similarity if it grows too large.
func (idx *Index) connect(from, to grain.ID, layer int) {
	el, ok := idx.elems[from]
	if !ok || layer >= len(el.layers) {
		return
	}
	for _, existing := range el.layers[layer] {
		if existing == to {
			return
		}
	}
	el.layers[layer] = append(el.layers[layer], to)

	maxConns := idx.cfg.M
	if layer == 0 {
		maxConns = idx.cfg.M * 2
	}
	if len(el.layers[layer]) <= maxConns {
		return
	}

	target := idx.elems[to]
	cands := make([]candidate, 0, len(el.layers[layer]))
	for _, nid := range el.layers[layer] {
		if n, ok := idx.elems[nid]; ok {
			cands = append(cands, candidate{id: nid, sim: cosineSim(el.vec, n.vec), seq: n.seq})
		}
	}
	_ = target
	kept := selectNeighbors(cands, maxConns)
	el.layers[layer] = kept
}

// greedyClosest walks down to a single local optimum at layer, starting
// from entry — used only to pick a good entry point for the next layer.
func (idx *Index) greedyClosest(query []float32, entry grain.ID, layer int) grain.ID {
	best := entry
	bestSim := cosineSim(query, idx.elems[entry].vec)
	improved := true
	for improved {
		improved = false
		el := idx.elems[best]
		if layer >= len(el.layers) {
			break
		}
		for _, nb := range el.layers[layer] {
			n, ok := idx.elems[nb]
			if !ok {
				continue
			}
			sim := cosineSim(query, n.vec)
			if sim > bestSim {
				bestSim = sim
				best = nb
				improved = true
			}
		}
	}
	return best
}

type candidate struct {
	id  grain.ID
	sim float32
	seq int
}

// searchLayer is a best-first search bounded to ef candidates at layer,
// using a bitset to track visited elements.
func (idx *Index) searchLayer(query []float32, entry grain.ID, ef int, layer int) []candidate {
	visited := bitset.New(uint(len(idx.order)))
	visitedIdx := make(map[grain.ID]uint)
	indexOf := func(id grain.ID) uint {
		if i, ok := visitedIdx[id]; ok {
			return i
		}
		i := uint(len(visitedIdx))
		visitedIdx[id] = i
		return i
	}

	entryEl, ok := idx.elems[entry]
	if !ok {
		return nil
	}
	entrySim := cosineSim(query, entryEl.vec)

	candidates := &maxHeap{{id: entry, sim: entrySim, seq: entryEl.seq}}
	results := &minHeap{{id: entry, sim: entrySim, seq: entryEl.seq}}
	visited.Set(indexOf(entry))

	for candidates.Len() > 0 {
		cur := heap.Pop(candidates).(candidate)
		worstResult := (*results)[0]
		if cur.sim < worstResult.sim && results.Len() >= ef {
			break
		}

		el, ok := idx.elems[cur.id]
		if !ok || layer >= len(el.layers) {
			continue
		}
		for _, nb := range el.layers[layer] {
			bit := indexOf(nb)
			if visited.Test(bit) {
				continue
			}
			visited.Set(bit)
			nEl, ok := idx.elems[nb]
			if !ok {
				continue
			}
			sim := cosineSim(query, nEl.vec)
			worst := (*results)[0]
			if results.Len() < ef || sim > worst.sim {
				heap.Push(candidates, candidate{id: nb, sim: sim, seq: nEl.seq})
				heap.Push(results, candidate{id: nb, sim: sim, seq: nEl.seq})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

// selectNeighbors keeps the top-m candidates by similarity, breaking ties
// by earlier insertion order (§4.D: "ties broken by insertion order").
func selectNeighbors(cands []candidate, m int) []grain.ID {
	sorted := append([]candidate(nil), cands...)
	sortCandidates(sorted)
	if len(sorted) > m {
		sorted = sorted[:m]
	}
	out := make([]grain.ID, len(sorted))
	for i, c := range sorted {
		out[i] = c.id
	}
	return out
}

func sortCandidates(c []candidate) {
	// Simple insertion sort: candidate lists here are bounded by
	// EfConstruction/M, not the corpus size, so O(n^2) is a non-issue.
	for i := 1; i < len(c); i++ {
		j := i
		for j > 0 && less(c[j], c[j-1]) {
			c[j], c[j-1] = c[j-1], c[j]
			j--
		}
	}
}

// less orders candidates by similarity desc, then insertion order asc.
func less(a, b candidate) bool {
	if a.sim != b.sim {
		return a.sim > b.sim
	}
	return a.seq < b.seq
}

// Search returns at most k grains most similar to query, ordered by
// similarity descending, ties broken by insertion order (§4.D).
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.cfg.Dim {
		return nil, ErrDimensionMismatch
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.elems) == 0 {
		return nil, nil
	}

	q := normalize(query)
	entry := idx.entry
	for lc := idx.maxLv; lc > 0; lc-- {
		entry = idx.greedyClosest(q, entry, lc)
	}

	ef := k
	if idx.cfg.EfConstruction > ef {
		ef = idx.cfg.EfConstruction
	}
	cands := idx.searchLayer(q, entry, ef, 0)
	sortCandidates(cands)
	if len(cands) > k {
		cands = cands[:k]
	}

	out := make([]Result, len(cands))
	for i, c := range cands {
		out[i] = Result{GrainID: c.id, Similarity: c.sim}
	}
	return out, nil
}

// Rebuild discards the current graph and re-inserts grains in order,
// producing a fresh index (§4.D). Grains with a mismatched dimension are
// skipped rather than aborting the whole rebuild.
func (idx *Index) Rebuild(grains []*grain.Grain) {
	idx.mu.Lock()
	idx.elems = make(map[grain.ID]*element)
	idx.order = nil
	idx.entry = grain.ID{}
	idx.maxLv = 0
	idx.seq = 0
	idx.mu.Unlock()

	for _, g := range grains {
		_ = idx.Add(g) // dimension mismatches are skipped, not fatal to the rebuild
	}
}

// Len reports how many grains are currently indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.elems)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
