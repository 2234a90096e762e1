// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package swarm

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrHypothesisNotFound is returned when evidence or a vote references
// an unknown hypothesis id (§4.G step 2/3).
var ErrHypothesisNotFound = errors.New("swarm: hypothesis not found")

// maxContentLen bounds an incoming hypothesis's content and
// mergeSimilarityThresh is the near-duplicate merge cutoff (§4.G step 1).
const (
	maxContentLen          = 512
	mergeSimilarityThresh  = 0.9
)

// RoundState holds everything collected and produced for one round of
// one goal's consensus loop.
type RoundState struct {
	Index        int
	Hypotheses   map[string]Hypothesis
	order        []string // insertion order, for deterministic merge tie-breaking
	EvidenceMap  map[string][]Evidence
	VotesMap     map[string][]Vote
	Weights      map[string]MeaningWeight
}

// NewRoundState starts an empty round.
func NewRoundState(idx int) *RoundState {
	return &RoundState{
		Index:       idx,
		Hypotheses:  make(map[string]Hypothesis),
		EvidenceMap: make(map[string][]Evidence),
		VotesMap:    make(map[string][]Vote),
		Weights:     make(map[string]MeaningWeight),
	}
}

// cosineSim assumes unit-normalized input is not guaranteed; it
// normalizes defensively since hypothesis vectors arrive from peers.
func cosineSim(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// AddHypothesis applies §4.G step 1: reject oversized content, wrong
// dimension, or staleness; merge near-duplicates (similarity > 0.9)
// against already-accepted hypotheses in this round, preferring the
// longer content and, on a content-length tie, the earlier timestamp.
func (r *RoundState) AddHypothesis(h Hypothesis, dim int, isStale func(Hypothesis) bool) bool {
	if len(h.Content) > maxContentLen || len(h.Vec) != dim || isStale(h) {
		return false
	}

	for _, id := range r.order {
		existing := r.Hypotheses[id]
		if cosineSim(existing.Vec, h.Vec) > mergeSimilarityThresh {
			if betterHypothesis(h, existing) {
				r.Hypotheses[id] = h
			}
			return true
		}
	}

	r.Hypotheses[h.ID] = h
	r.order = append(r.order, h.ID)
	return true
}

// betterHypothesis prefers longer content, then the earlier timestamp.
func betterHypothesis(candidate, existing Hypothesis) bool {
	if len(candidate.Content) != len(existing.Content) {
		return len(candidate.Content) > len(existing.Content)
	}
	return candidate.Timestamp.Before(existing.Timestamp)
}

// AddEvidence binds evidence to a known hypothesis (§4.G step 2).
func (r *RoundState) AddEvidence(e Evidence) error {
	if _, ok := r.Hypotheses[e.HypothesisID]; !ok {
		return ErrHypothesisNotFound
	}
	r.EvidenceMap[e.HypothesisID] = append(r.EvidenceMap[e.HypothesisID], e)
	return nil
}

// AddVote binds a clamped vote to a known hypothesis (§4.G step 3).
func (r *RoundState) AddVote(v Vote) error {
	if _, ok := r.Hypotheses[v.HypothesisID]; !ok {
		return ErrHypothesisNotFound
	}
	r.VotesMap[v.HypothesisID] = append(r.VotesMap[v.HypothesisID], v.clamp())
	return nil
}

// Aggregate computes raw and normalized weights for every hypothesis in
// the round (§4.G steps 4-5): raw_weight is the reputation-weighted sum
// of each voter's combined score; normalization is a numerically stable
// softmax across all hypotheses in the round via gonum's LogSumExp.
func (r *RoundState) Aggregate(coeffs VoteCoefficients, nodeWeight func(voterID string) float32) map[string]float32 {
	raw := make(map[string]float32, len(r.Hypotheses))
	ids := make([]string, 0, len(r.Hypotheses))
	for id := range r.Hypotheses {
		ids = append(ids, id)
		var sum float32
		for _, v := range r.VotesMap[id] {
			sum += nodeWeight(v.VoterID) * coeffs.score(v)
		}
		raw[id] = sum
	}
	sort.Strings(ids) // deterministic iteration for the softmax below

	if len(ids) == 0 {
		return map[string]float32{}
	}

	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = float64(raw[id])
	}
	lse := floats.LogSumExp(values)

	normalized := make(map[string]float32, len(ids))
	for i, id := range ids {
		normalized[id] = float32(math.Exp(values[i] - lse))
	}
	return normalized
}

// CommitResult is the outcome of a commit test.
type CommitResult struct {
	Qualifies bool
	HypothesisID string
	Weight     float32
}

// CommitTest applies §4.G step 6: a hypothesis may commit if its
// normalized weight is at least tauCommit and it gathered at least
// kMin votes; the highest-weight qualifier wins ties.
func CommitTest(normalized map[string]float32, votesMap map[string][]Vote, tauCommit float32, kMin int) CommitResult {
	var best CommitResult
	for id, w := range normalized {
		if w < tauCommit || len(votesMap[id]) < kMin {
			continue
		}
		if !best.Qualifies || w > best.Weight {
			best = CommitResult{Qualifies: true, HypothesisID: id, Weight: w}
		}
	}
	return best
}

// TopN returns the n highest-weighted hypothesis ids, descending.
func TopN(normalized map[string]float32, n int) []string {
	ids := make([]string, 0, len(normalized))
	for id := range normalized {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return normalized[ids[i]] > normalized[ids[j]] })
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// ConvergenceTest applies §4.G step 7: compares the top-3 weights
// between the current and previous round's normalized weights. For
// every hypothesis in the union of both top-3 sets, the difference of
// its weights in the two rounds must be below epsilon for the goal to
// have converged. A hypothesis absent from one round's weights counts
// as weight 0 there.
func ConvergenceTest(current, previous map[string]float32, epsilon float32) bool {
	if previous == nil {
		return false
	}
	curTop := TopN(current, 3)
	prevTop := TopN(previous, 3)

	union := make(map[string]struct{}, len(curTop)+len(prevTop))
	for _, id := range curTop {
		union[id] = struct{}{}
	}
	for _, id := range prevTop {
		union[id] = struct{}{}
	}

	for id := range union {
		diff := current[id] - previous[id]
		if diff < 0 {
			diff = -diff
		}
		if diff >= epsilon {
			return false
		}
	}
	return true
}
