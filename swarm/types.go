// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package swarm implements Consensus of Meaning: a multi-round,
// reputation-weighted vote over competing hypotheses that commits on a
// quorum-weighted threshold or reports non-convergence (§4.G).
package swarm

import (
	"time"

	"github.com/synapsenet/core/grain"
)

// Hypothesis is a proposed answer within a goal's round.
type Hypothesis struct {
	ID        string
	AuthorID  string
	Content   string
	Vec       []float32
	Timestamp time.Time
}

// Evidence supports or refutes a hypothesis, optionally citing a grain
// already present in the local store.
type Evidence struct {
	ID           string
	HypothesisID string
	AuthorID     string
	GrainRef     *grain.ID
	Supports     bool
	Timestamp    time.Time
}

// Vote scores a hypothesis along four declared dimensions, each clamped
// to [0,1] on receipt.
type Vote struct {
	ID           string
	HypothesisID string
	VoterID      string
	Support      float32
	Coherence    float32
	Novelty      float32
	Reuse        float32
	Timestamp    time.Time
}

func (v Vote) clamp() Vote {
	v.Support = clamp01(v.Support)
	v.Coherence = clamp01(v.Coherence)
	v.Novelty = clamp01(v.Novelty)
	v.Reuse = clamp01(v.Reuse)
	return v
}

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// MeaningWeight is the normalized, per-round outcome for one hypothesis.
type MeaningWeight struct {
	HypothesisID string
	Weight       float32
	Votes        int
	Round        int
	Committed    bool
}

// NodeWeight is the vote-weight multiplier derived from a participant's
// reputation and reuse score, clamped to [0.1, 3.0].
type NodeWeight struct {
	NodeID     string
	Reputation float32 // [0,1]
	ReuseScore float32 // [0,1]
}

// Weight computes clamp(reputation*(1+reuse_score), 0.1, 3.0).
func (n NodeWeight) Weight() float32 {
	w := n.Reputation * (1 + n.ReuseScore)
	if w < 0.1 {
		return 0.1
	}
	if w > 3.0 {
		return 3.0
	}
	return w
}

// VoteCoefficients weights the four vote dimensions during aggregation
// and proximity scoring (§4.G step 4). Defaults: α=β=0.35, γ=0.20, δ=0.10.
type VoteCoefficients struct {
	Alpha float32
	Beta  float32
	Gamma float32
	Delta float32
}

// DefaultVoteCoefficients matches the reference aggregation weights.
func DefaultVoteCoefficients() VoteCoefficients {
	return VoteCoefficients{Alpha: 0.35, Beta: 0.35, Gamma: 0.20, Delta: 0.10}
}

// score combines a vote's four dimensions under c.
func (c VoteCoefficients) score(v Vote) float32 {
	return c.Alpha*v.Support + c.Beta*v.Coherence + c.Gamma*v.Novelty + c.Delta*v.Reuse
}
