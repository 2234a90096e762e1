// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// RegisterEmbeddingModel upserts the shape of an embedding model the node
// knows how to produce vectors for.
func (s *Store) RegisterEmbeddingModel(name string, dim int, sizeMB float64) error {
	val, err := cbor.Marshal(EmbeddingModel{Name: name, Dim: dim, SizeMB: sizeMB})
	if err != nil {
		return fmt.Errorf("%w: encode embedding model: %v", ErrCorruptedRecord, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(embeddingModelKey(name), val, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// GetEmbeddingModel looks up a single registered model by name.
func (s *Store) GetEmbeddingModel(name string) (EmbeddingModel, bool, error) {
	val, closer, err := s.db.Get(embeddingModelKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return EmbeddingModel{}, false, nil
	}
	if err != nil {
		return EmbeddingModel{}, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer closer.Close()

	var m EmbeddingModel
	if err := cbor.Unmarshal(val, &m); err != nil {
		return EmbeddingModel{}, false, fmt.Errorf("%w: decode embedding model: %v", ErrCorruptedRecord, err)
	}
	return m, true, nil
}

// GetAllEmbeddingModels lists every registered model.
func (s *Store) GetAllEmbeddingModels() ([]EmbeddingModel, error) {
	prefix := embeddingModelPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer iter.Close()

	var out []EmbeddingModel
	for iter.First(); iter.Valid(); iter.Next() {
		var m EmbeddingModel
		if err := cbor.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("%w: decode embedding model: %v", ErrCorruptedRecord, err)
		}
		out = append(out, m)
	}
	return out, nil
}
