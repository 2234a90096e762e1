// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package poe computes Proof-of-Emergence v2 scores for grains: a
// weighted blend of novelty, coherence, and reuse that feeds NGT
// rewards (§4.E).
package poe

import (
	"errors"
	"fmt"
	"math"

	"github.com/synapsenet/core/grain"
	"github.com/synapsenet/core/index"
	"github.com/synapsenet/core/store"
)

// ErrInvalidWeights is returned when reward weights don't sum to 1.0
// within tolerance.
var ErrInvalidWeights = errors.New("poe: reward weights must sum to 1.0")

const weightTolerance = 0.01

// Weights blends the three PoE components into a total score. The
// tuple mirrors the economy section of the node config (§6): novelty,
// coherence, reuse must sum to 1.0 within weightTolerance.
type Weights struct {
	Novelty   float32
	Coherence float32
	Reuse     float32
}

// DefaultWeights matches the reference economy configuration.
func DefaultWeights() Weights {
	return Weights{Novelty: 0.4, Coherence: 0.3, Reuse: 0.3}
}

func (w Weights) validate() error {
	sum := w.Novelty + w.Coherence + w.Reuse
	if math.Abs(float64(sum-1.0)) > weightTolerance {
		return fmt.Errorf("%w: got %.3f", ErrInvalidWeights, sum)
	}
	return nil
}

// Score is the breakdown and total for one grain's PoE evaluation.
type Score struct {
	Novelty   float32
	Coherence float32
	Reuse     float32
	Total     float32
}

// NGTReward converts a total score into an NGT payout: a 1.0 NGT base
// plus up to 10.0 NGT scaled by the total score (§4.E).
func (s Score) NGTReward() float32 {
	return 1.0 + s.Total*10.0
}

// Engine evaluates PoE scores against a live index and store.
type Engine struct {
	idx     *index.Index
	st      *store.Store
	weights Weights
}

// New builds an engine bound to idx and st, validating weights.
func New(idx *index.Index, st *store.Store, weights Weights) (*Engine, error) {
	if err := weights.validate(); err != nil {
		return nil, err
	}
	return &Engine{idx: idx, st: st, weights: weights}, nil
}

// Weights reports the engine's reward weights.
func (e *Engine) Weights() Weights { return e.weights }

// CalculateScore evaluates novelty, coherence, and reuse for g and
// combines them per the engine's weights.
func (e *Engine) CalculateScore(g *grain.Grain) (Score, error) {
	novelty, err := e.calculateNovelty(g.Vec)
	if err != nil {
		return Score{}, fmt.Errorf("novelty: %w", err)
	}
	coherence, err := e.calculateCoherence(g)
	if err != nil {
		return Score{}, fmt.Errorf("coherence: %w", err)
	}
	reuse, err := e.calculateReuse(g.ID)
	if err != nil {
		return Score{}, fmt.Errorf("reuse: %w", err)
	}

	total := novelty*e.weights.Novelty + coherence*e.weights.Coherence + reuse*e.weights.Reuse
	return Score{Novelty: novelty, Coherence: coherence, Reuse: reuse, Total: total}, nil
}

// calculateNovelty is 1 minus the average similarity to the 10 nearest
// existing grains; an empty index means the grain is maximally novel.
func (e *Engine) calculateNovelty(vec []float32) (float32, error) {
	neighbors, err := e.idx.Search(vec, 10)
	if err != nil {
		return 0, err
	}
	if len(neighbors) == 0 {
		return 1.0, nil
	}

	var sum float32
	for _, n := range neighbors {
		sum += n.Similarity
	}
	avg := sum / float32(len(neighbors))

	novelty := 1.0 - avg
	return clamp01(novelty), nil
}

// calculateCoherence rewards grains well-connected to a topically
// diverse neighborhood: among the 20 nearest grains with similarity
// above 0.6, coherence is connection density times tag diversity.
func (e *Engine) calculateCoherence(g *grain.Grain) (float32, error) {
	neighbors, err := e.idx.Search(g.Vec, 20)
	if err != nil {
		return 0, err
	}

	related := make([]index.Result, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Similarity > 0.6 {
			related = append(related, n)
		}
	}
	if len(related) < 2 {
		return 0, nil
	}

	tagSet := make(map[string]struct{})
	for _, r := range related {
		rg, ok, err := e.st.GetGrain(r.GrainID)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		for _, tag := range rg.Meta.Tags {
			tagSet[tag] = struct{}{}
		}
	}

	diversity := clamp01(float32(len(tagSet)) / float32(len(related)))
	connectionScore := clamp01(float32(len(related)) / 20.0)
	return connectionScore * diversity, nil
}

// calculateReuse scores how often and how broadly a grain has been
// accessed: a log-scaled frequency term plus a log-scaled unique-peer
// term, each capped, then summed and capped again at 1.0.
func (e *Engine) calculateReuse(id grain.ID) (float32, error) {
	events, err := e.st.GetGrainAccessEvents(id)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	peers := make(map[string]struct{})
	for _, evt := range events {
		peers[evt.PeerID] = struct{}{}
	}

	frequencyScore := clamp01(float32(math.Log10(float64(len(events))) / 3.0))
	diversityScore := clamp01(float32(math.Log10(float64(len(peers))) / 2.0))
	return clamp01(frequencyScore + diversityScore), nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
