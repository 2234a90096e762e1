// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sentinel validation errors for a Node's declarative configuration.
var (
	ErrInvalidP2PPort        = errors.New("config: p2p.port must be nonzero")
	ErrInvalidEmbeddingDim   = errors.New("config: ai.embedding_dim must be nonzero")
	ErrInvalidHNSWParam      = errors.New("config: storage.hnsw parameters must be nonzero")
	ErrInvalidClusterThresh  = errors.New("config: network.cluster_threshold must be in [0,1]")
	ErrInvalidEconomyWeights = errors.New("config: economy.alpha+beta+gamma must sum to 1.0")
	ErrInvalidUITheme        = errors.New("config: ui.theme must be one of light, dark, auto")
	ErrInvalidUIDefaultView  = errors.New("config: ui.default_view must be one of search, add, graph, stats")
)

const economyWeightTolerance = 0.01

type NodeSection struct {
	ID       string `yaml:"id"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

type P2PSection struct {
	Port            int      `yaml:"port"`
	BootstrapPeers  []string `yaml:"bootstrap_peers"`
	MDNSServiceName string   `yaml:"mdns_service_name"`
}

type NetworkSection struct {
	ClusterThreshold float64 `yaml:"cluster_threshold"`
	GossipFanout     int     `yaml:"gossip_fanout"`
}

type AISection struct {
	EmbeddingDim int    `yaml:"embedding_dim"`
	ModelName    string `yaml:"model_name"`
}

type HNSWSection struct {
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`
	MaxElements    int `yaml:"max_elements"`
}

type StorageSection struct {
	Path string      `yaml:"path"`
	HNSW HNSWSection `yaml:"hnsw"`
}

type EconomySection struct {
	Alpha float32 `yaml:"alpha"`
	Beta  float32 `yaml:"beta"`
	Gamma float32 `yaml:"gamma"`
}

type UISection struct {
	Theme       string `yaml:"theme"`
	DefaultView string `yaml:"default_view"`
}

// Node is the top-level declarative configuration for a SynapseNet node
// (§6): node identity, p2p transport, gossip/cluster tuning, the
// embedding model surface, storage and index sizing, PoE economy
// weights, and the local UI.
type Node struct {
	Node    NodeSection    `yaml:"node"`
	P2P     P2PSection     `yaml:"p2p"`
	Network NetworkSection `yaml:"network"`
	AI      AISection      `yaml:"ai"`
	Storage StorageSection `yaml:"storage"`
	Economy EconomySection `yaml:"economy"`
	UI      UISection      `yaml:"ui"`
}

// DefaultNode returns a Node populated with the reference defaults used
// across the rest of the module (index.DefaultConfig, poe.DefaultWeights).
func DefaultNode() Node {
	return Node{
		Node: NodeSection{
			DataDir:  "./data",
			LogLevel: "info",
		},
		P2P: P2PSection{
			Port:            7946,
			MDNSServiceName: "_synapsenet._tcp",
		},
		Network: NetworkSection{
			ClusterThreshold: 0.6,
			GossipFanout:     6,
		},
		AI: AISection{
			EmbeddingDim: 384,
		},
		Storage: StorageSection{
			Path: "./data/store",
			HNSW: HNSWSection{
				M:              16,
				EfConstruction: 200,
				MaxElements:    1_000_000,
			},
		},
		Economy: EconomySection{
			Alpha: 0.4,
			Beta:  0.3,
			Gamma: 0.3,
		},
		UI: UISection{
			Theme:       "auto",
			DefaultView: "search",
		},
	}
}

// LoadNode reads and validates a Node configuration from a YAML file.
func LoadNode(path string) (Node, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Node{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	n := DefaultNode()
	if err := yaml.Unmarshal(buf, &n); err != nil {
		return Node{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := n.Valid(); err != nil {
		return Node{}, err
	}
	return n, nil
}

var validThemes = map[string]bool{"light": true, "dark": true, "auto": true}

var validViews = map[string]bool{"search": true, "add": true, "graph": true, "stats": true}

// Valid checks every section against the invariants in §6.
func (n Node) Valid() error {
	if n.P2P.Port == 0 {
		return ErrInvalidP2PPort
	}
	if n.AI.EmbeddingDim == 0 {
		return ErrInvalidEmbeddingDim
	}
	if n.Storage.HNSW.M == 0 || n.Storage.HNSW.EfConstruction == 0 || n.Storage.HNSW.MaxElements == 0 {
		return ErrInvalidHNSWParam
	}
	if n.Network.ClusterThreshold < 0 || n.Network.ClusterThreshold > 1 {
		return ErrInvalidClusterThresh
	}
	sum := n.Economy.Alpha + n.Economy.Beta + n.Economy.Gamma
	if diff := sum - 1.0; diff < -economyWeightTolerance || diff > economyWeightTolerance {
		return ErrInvalidEconomyWeights
	}
	if !validThemes[n.UI.Theme] {
		return ErrInvalidUITheme
	}
	if !validViews[n.UI.DefaultView] {
		return ErrInvalidUIDefaultView
	}
	return nil
}
