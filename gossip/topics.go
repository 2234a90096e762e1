// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package gossip implements the authenticated flood overlay that
// disseminates grains between nodes: per-peer rate limiting,
// reputation, message de-duplication, and a distributed top-k query
// (§4.F).
package gossip

// Topic identifiers, always namespaced under "synapsenet/" on the wire.
const (
	TopicGrainsPut  = "synapsenet/grains.put"
	TopicGrainsAck  = "synapsenet/grains.ack"
	TopicQueryKNN   = "synapsenet/query.knn"
	TopicQueryResp  = "synapsenet/query.resp"
)
