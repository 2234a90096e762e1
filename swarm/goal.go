// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package swarm

import (
	"fmt"
	"math"
	"time"

	"github.com/synapsenet/core/grain"
	"github.com/synapsenet/core/log"
	"github.com/synapsenet/core/metrics"
	"github.com/synapsenet/core/ratelimit"
	"github.com/synapsenet/core/store"
)

// Config bounds a goal's consensus run (§4.G).
type Config struct {
	Dim          int
	MaxRounds    int
	TauCommit    float32
	KMin         int
	Epsilon      float32
	Kappa        float32 // author reward coefficient, default 1.0
	Lambda       float32 // voter reward coefficient, default 0.5
	Coefficients VoteCoefficients
}

// DefaultConfig matches the reference consensus tuning.
func DefaultConfig(dim int) Config {
	return Config{
		Dim:          dim,
		MaxRounds:    10,
		TauCommit:    0.72,
		KMin:         7,
		Epsilon:      0.02,
		Kappa:        1.0,
		Lambda:       0.5,
		Coefficients: DefaultVoteCoefficients(),
	}
}

const (
	spamPenalty                 = -0.5
	inconsistentEvidencePenalty = -0.3
	hypothesisMaxAge            = time.Hour

	proposalsPerMinute = 5
	votesPerMinute     = 30
	evidencePerMinute  = 20
)

// ReputationLedger is the subset of node reputation state the engine
// reads (for vote weighting) and writes (for penalties).
type ReputationLedger interface {
	Adjust(nodeID string, delta float32)
	NodeWeight(nodeID string) NodeWeight
}

// RoundInputs is what a caller collects for one round from the gossip
// broadcast topics before handing it to the engine.
type RoundInputs struct {
	Hypotheses []Hypothesis
	Evidence   []Evidence
	Votes      []Vote
}

// Outcome is the final result of a goal's consensus run.
type Outcome struct {
	Converged  bool
	Best       *MeaningWeight
	RoundCount int
}

// Engine drives one goal's Consensus-of-Meaning state machine. A goal's
// state is owned by the single task running its loop (§5); concurrent
// goals each get their own Engine.
type Engine struct {
	cfg     Config
	st      *store.Store
	reps    ReputationLedger
	log     log.Logger
	metrics *metrics.Node

	proposalWindows map[string]*ratelimit.Window
	voteWindows     map[string]*ratelimit.Window
	evidenceWindows map[string]*ratelimit.Window
}

// NewEngine builds an engine writing rewards to st and consulting reps
// for reputation-derived vote weights and penalties.
func NewEngine(cfg Config, st *store.Store, reps ReputationLedger) *Engine {
	return &Engine{
		cfg:             cfg,
		st:              st,
		reps:            reps,
		log:             log.NewNoOp(),
		proposalWindows: make(map[string]*ratelimit.Window),
		voteWindows:     make(map[string]*ratelimit.Window),
		evidenceWindows: make(map[string]*ratelimit.Window),
	}
}

// SetLogger replaces the engine's logger; pass nil to mute it.
func (e *Engine) SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNoOp()
	}
	e.log = l
}

// SetMetrics attaches a metrics.Node the engine reports round/commit
// counters to; pass nil to stop reporting.
func (e *Engine) SetMetrics(m *metrics.Node) {
	e.metrics = m
}

func (e *Engine) windowFor(m map[string]*ratelimit.Window, id string, limit int) *ratelimit.Window {
	w, ok := m[id]
	if !ok {
		w = ratelimit.New(limit, time.Minute)
		m[id] = w
	}
	return w
}

// RunGoal executes the round state machine for goalID: collectRound is
// invoked once per round to gather hypotheses/evidence/votes already
// filtered through gossip's transport layer.
func (e *Engine) RunGoal(goalID string, collectRound func(round int) RoundInputs) (Outcome, error) {
	var previous map[string]float32
	now := time.Now()

	for r := 0; r < e.cfg.MaxRounds; r++ {
		round := NewRoundState(r)
		inputs := collectRound(r)
		if e.metrics != nil {
			e.metrics.SwarmRounds.Inc()
		}

		for _, h := range inputs.Hypotheses {
			if !e.windowFor(e.proposalWindows, h.AuthorID, proposalsPerMinute).Allow(now) {
				continue
			}
			accepted := round.AddHypothesis(h, e.cfg.Dim, func(cand Hypothesis) bool {
				return now.Sub(cand.Timestamp) > hypothesisMaxAge
			})
			if !accepted {
				e.reps.Adjust(h.AuthorID, spamPenalty)
			}
		}

		unresolved := make(map[string]Evidence)
		for _, ev := range inputs.Evidence {
			if !e.windowFor(e.evidenceWindows, ev.AuthorID, evidencePerMinute).Allow(now) {
				continue
			}
			if err := round.AddEvidence(ev); err != nil {
				continue // unknown hypothesis binding: silently rejected per §4.G step 2
			}
			if ev.GrainRef != nil {
				if _, ok, err := e.st.GetGrain(*ev.GrainRef); err != nil || !ok {
					unresolved[ev.ID] = ev
				}
			}
		}

		for _, v := range inputs.Votes {
			if !e.windowFor(e.voteWindows, v.VoterID, votesPerMinute).Allow(now) {
				continue
			}
			_ = round.AddVote(v) // unknown hypothesis binding: silently dropped
		}

		normalized := round.Aggregate(e.cfg.Coefficients, func(voterID string) float32 {
			return e.reps.NodeWeight(voterID).Weight()
		})

		for id, ev := range unresolved {
			_ = id
			e.reps.Adjust(ev.AuthorID, inconsistentEvidencePenalty)
		}

		if len(round.Hypotheses) == 0 && r == e.cfg.MaxRounds-1 {
			return Outcome{Converged: false, Best: nil, RoundCount: r + 1}, nil
		}

		converged := ConvergenceTest(normalized, previous, e.cfg.Epsilon)
		if converged {
			commit := CommitTest(normalized, round.VotesMap, e.cfg.TauCommit, e.cfg.KMin)
			outcome := Outcome{Converged: true, RoundCount: r + 1}
			if e.metrics != nil {
				e.metrics.SwarmConverged.Inc()
			}
			if commit.Qualifies {
				mw := MeaningWeight{HypothesisID: commit.HypothesisID, Weight: commit.Weight, Votes: len(round.VotesMap[commit.HypothesisID]), Round: r, Committed: true}
				if err := e.payRewards(goalID, round, commit); err != nil {
					return Outcome{}, err
				}
				outcome.Best = &mw
				if e.metrics != nil {
					e.metrics.SwarmCommits.Inc()
				}
				e.log.Info("goal committed", "goal", goalID, "hypothesis", commit.HypothesisID, "round", r, "weight", commit.Weight)
			} else {
				e.log.Info("goal converged without quorum", "goal", goalID, "round", r)
			}
			return outcome, nil
		}

		previous = normalized
	}

	e.log.Warn("goal exhausted rounds without convergence", "goal", goalID, "rounds", e.cfg.MaxRounds)
	return Outcome{Converged: false, Best: nil, RoundCount: e.cfg.MaxRounds}, nil
}

// payRewards writes author and voter rewards to the Credit ledger on a
// successful commit (§4.G rewards).
func (e *Engine) payRewards(goalID string, round *RoundState, commit CommitResult) error {
	h, ok := round.Hypotheses[commit.HypothesisID]
	if !ok {
		return fmt.Errorf("swarm: commit references unknown hypothesis %s", commit.HypothesisID)
	}
	votes := round.VotesMap[commit.HypothesisID]
	evidenceCount := len(round.EvidenceMap[commit.HypothesisID])

	authorReward := e.cfg.Kappa * commit.Weight * float32(1+math.Log(1+float64(evidenceCount)))
	if err := e.st.InsertCredit(store.Credit{
		NodePK: []byte(h.AuthorID),
		NGT:    float64(authorReward),
		Reason: fmt.Sprintf("swarm:author:%s:%s", goalID, commit.HypothesisID),
	}); err != nil {
		return err
	}

	for _, v := range votes {
		voteScore := e.cfg.Coefficients.score(v)
		clampedWeight := commit.Weight
		if clampedWeight < 0 {
			clampedWeight = 0
		}
		if clampedWeight > 1 {
			clampedWeight = 1
		}
		diff := voteScore - clampedWeight
		if diff < 0 {
			diff = -diff
		}
		proximity := 1 - diff
		reward := e.cfg.Lambda * e.reps.NodeWeight(v.VoterID).Weight() * proximity
		if err := e.st.InsertCredit(store.Credit{
			NodePK: []byte(v.VoterID),
			NGT:    float64(reward),
			Reason: fmt.Sprintf("swarm:voter:%s:%s", goalID, commit.HypothesisID),
		}); err != nil {
			return err
		}
	}
	return nil
}

// grainRefFromID is a small convenience for callers building Evidence
// values from a known grain id.
func grainRefFromID(id grain.ID) *grain.ID {
	return &id
}
