// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/synapsenet/core/crypto"
	"github.com/synapsenet/core/grain"
)

// grainsPerExportFile matches §6: "one file per 10 000 grains".
const grainsPerExportFile = 10_000

// exportColumns is the columnar shape of one export file: each field is
// its own column, id-aligned by index, per §6's {id, vec, author_pk,
// crypto_backend, ts_unix_ms, tags, mime, lang, title, summary, sig}.
type exportColumns struct {
	ID            [][32]byte
	Vec           [][]float32
	AuthorPK      [][]byte
	CryptoBackend []uint8
	TimestampMS   []int64
	Tags          [][]string
	Mime          []string
	Lang          []string
	Title         []string
	Summary       []string
	Sig           [][]byte
}

// ExportArchive writes every grain in the store to a directory of
// zstd-compressed, columnar-encoded files, 10,000 grains per file, as
// described in §6. It is a read-only export: the live store is untouched.
func (s *Store) ExportArchive(dir string) (fileCount int, grainCount int, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("%w: mkdir export dir: %v", ErrStorageUnavailable, err)
	}

	all, err := s.GetAllGrains()
	if err != nil {
		return 0, 0, err
	}

	for start := 0; start < len(all); start += grainsPerExportFile {
		end := start + grainsPerExportFile
		if end > len(all) {
			end = len(all)
		}
		if err := writeExportFile(filepath.Join(dir, fmt.Sprintf("grains-%05d.cbor.zst", fileCount)), all[start:end]); err != nil {
			return fileCount, grainCount, err
		}
		fileCount++
		grainCount += end - start
	}
	return fileCount, grainCount, nil
}

func writeExportFile(path string, grains []*grain.Grain) error {
	cols := exportColumns{}
	for _, g := range grains {
		cols.ID = append(cols.ID, [32]byte(g.ID))
		cols.Vec = append(cols.Vec, g.Vec)
		cols.AuthorPK = append(cols.AuthorPK, g.Meta.AuthorPK)
		cols.CryptoBackend = append(cols.CryptoBackend, uint8(g.Meta.CryptoBackend))
		cols.TimestampMS = append(cols.TimestampMS, g.Meta.TimestampMS)
		cols.Tags = append(cols.Tags, g.Meta.Tags)
		cols.Mime = append(cols.Mime, g.Meta.Mime)
		cols.Lang = append(cols.Lang, g.Meta.Lang)
		cols.Title = append(cols.Title, g.Meta.Title)
		cols.Summary = append(cols.Summary, g.Meta.Summary)
		cols.Sig = append(cols.Sig, g.Sig)
	}

	raw, err := cbor.Marshal(cols)
	if err != nil {
		return fmt.Errorf("%w: encode export columns: %v", ErrCorruptedRecord, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("%w: build zstd encoder: %v", ErrStorageUnavailable, err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("%w: write export file: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// ImportArchive reads every export file under dir and decodes it back
// into grains, without touching the live store — callers decide whether
// to re-insert them.
func ImportArchive(dir string) ([]*grain.Grain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read export dir: %v", ErrStorageUnavailable, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build zstd decoder: %v", ErrStorageUnavailable, err)
	}
	defer dec.Close()

	var out []*grain.Grain
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		compressed, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: read export file: %v", ErrStorageUnavailable, err)
		}
		raw, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress export file: %v", ErrCorruptedRecord, err)
		}
		var cols exportColumns
		if err := cbor.Unmarshal(raw, &cols); err != nil {
			return nil, fmt.Errorf("%w: decode export columns: %v", ErrCorruptedRecord, err)
		}
		for i := range cols.ID {
			out = append(out, &grain.Grain{
				ID:  grain.ID(cols.ID[i]),
				Vec: cols.Vec[i],
				Sig: cols.Sig[i],
				Meta: grain.Meta{
					AuthorPK:       cols.AuthorPK[i],
					CryptoBackend:  crypto.Backend(cols.CryptoBackend[i]),
					TimestampMS:    cols.TimestampMS[i],
					Tags:           cols.Tags[i],
					Mime:           cols.Mime[i],
					Lang:           cols.Lang[i],
					Title:          cols.Title[i],
					Summary:        cols.Summary[i],
					EmbeddingDims:  uint32(len(cols.Vec[i])),
				},
			})
		}
	}
	return out, nil
}
