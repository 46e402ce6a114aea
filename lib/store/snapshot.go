// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/wyn0001/ai-collab-mcp/lib/codec"
)

// snapshotVersion is the archive format version.
const snapshotVersion = 1

// SnapshotHeader opens a snapshot archive: format version, creation
// time, and per-collection record counts so a reader knows what to
// expect before decoding the stream.
type SnapshotHeader struct {
	Version   int            `json:"version"`
	CreatedAt string         `json:"created_at"`
	Counts    map[string]int `json:"counts"`
}

// SnapshotRecord is one archived record. Content is the record's
// stored CBOR, embedded verbatim.
type SnapshotRecord struct {
	Collection string           `json:"collection"`
	ID         string           `json:"id"`
	Revision   int64            `json:"revision"`
	Content    codec.RawMessage `json:"content"`
}

// ExportSnapshot writes every record of every collection to w as a
// zstd-compressed CBOR stream: one SnapshotHeader followed by one
// SnapshotRecord per row, collections in their fixed order, records
// sorted by ID.
//
// The export reads each collection with List, so it sees a consistent
// view per collection but not across collections; callers wanting a
// fully consistent archive run it under the service's writer lock.
func (s *Store) ExportSnapshot(ctx context.Context, w io.Writer) (SnapshotHeader, error) {
	collected := make(map[Collection][]Record, len(Collections))
	header := SnapshotHeader{
		Version:   snapshotVersion,
		CreatedAt: s.clock.Now().UTC().Format(time.RFC3339),
		Counts:    make(map[string]int, len(Collections)),
	}
	total := 0
	for _, collection := range Collections {
		records, err := s.List(ctx, collection)
		if err != nil {
			return SnapshotHeader{}, err
		}
		collected[collection] = records
		header.Counts[string(collection)] = len(records)
		total += len(records)
	}

	compressor, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return SnapshotHeader{}, fmt.Errorf("record store: snapshot: zstd: %w", err)
	}
	encoder := codec.NewEncoder(compressor)

	if err := encoder.Encode(header); err != nil {
		return SnapshotHeader{}, fmt.Errorf("record store: snapshot: header: %w", err)
	}
	for _, collection := range Collections {
		for _, record := range collected[collection] {
			archived := SnapshotRecord{
				Collection: string(collection),
				ID:         record.ID,
				Revision:   record.Revision,
				Content:    codec.RawMessage(record.Content),
			}
			if err := encoder.Encode(archived); err != nil {
				return SnapshotHeader{}, fmt.Errorf("record store: snapshot: %s/%s: %w",
					collection, record.ID, err)
			}
		}
	}
	if err := compressor.Close(); err != nil {
		return SnapshotHeader{}, fmt.Errorf("record store: snapshot: flush: %w", err)
	}

	s.logger.Info("snapshot exported", "records", total)
	return header, nil
}

// ReadSnapshot decodes a snapshot archive produced by ExportSnapshot,
// calling visit for each record in stream order. Used by tests and by
// offline tooling; the service itself only exports.
func ReadSnapshot(r io.Reader, visit func(SnapshotRecord) error) (SnapshotHeader, error) {
	decompressor, err := zstd.NewReader(r)
	if err != nil {
		return SnapshotHeader{}, fmt.Errorf("record store: snapshot: zstd: %w", err)
	}
	defer decompressor.Close()

	decoder := codec.NewDecoder(decompressor)
	var header SnapshotHeader
	if err := decoder.Decode(&header); err != nil {
		return SnapshotHeader{}, fmt.Errorf("record store: snapshot: header: %w", err)
	}
	if header.Version != snapshotVersion {
		return SnapshotHeader{}, fmt.Errorf("record store: snapshot: unsupported version %d", header.Version)
	}
	for {
		var record SnapshotRecord
		if err := decoder.Decode(&record); err != nil {
			if err == io.EOF {
				return header, nil
			}
			return SnapshotHeader{}, fmt.Errorf("record store: snapshot: record: %w", err)
		}
		if err := visit(record); err != nil {
			return SnapshotHeader{}, err
		}
	}
}
