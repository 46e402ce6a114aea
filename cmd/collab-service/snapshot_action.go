// Copyright 2026 The AI-Collab Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wyn0001/ai-collab-mcp/lib/codec"
	"github.com/wyn0001/ai-collab-mcp/lib/store"
)

// exportResponse reports where the snapshot landed and what it holds.
type exportResponse struct {
	Path   string         `cbor:"path"`
	Counts map[string]int `cbor:"counts"`
}

// handleExportSnapshot writes a zstd-compressed CBOR archive of all
// four collections to the snapshots directory. The archive is written
// to a temp file and renamed into place so a crash mid-export never
// leaves a truncated snapshot under the final name.
func (s *CollabService) handleExportSnapshot(ctx context.Context, raw []byte) (any, error) {
	var request struct {
		// Path overrides the default snapshot location.
		Path string `cbor:"path"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid export_snapshot request: %w", err)
	}

	path := request.Path
	if path == "" {
		stamp := s.clock.Now().UTC().Format("20060102T150405Z")
		path = filepath.Join(s.snapshotDir, fmt.Sprintf("collab-%s.cbor.zst", stamp))
	}

	// Hold the writer mutex for the duration: the export must see a
	// consistent cut of the store, with no mutation interleaved.
	s.mu.Lock()
	defer s.mu.Unlock()

	header, err := s.writeSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot written", "path", path)
	return exportResponse{Path: path, Counts: header.Counts}, nil
}

func (s *CollabService) writeSnapshot(ctx context.Context, path string) (store.SnapshotHeader, error) {
	file, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return store.SnapshotHeader{}, fmt.Errorf("creating snapshot file: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(file.Name())
	}()

	header, err := s.store.ExportSnapshot(ctx, file)
	if err != nil {
		return store.SnapshotHeader{}, fmt.Errorf("exporting snapshot: %w", err)
	}
	if err := file.Sync(); err != nil {
		return store.SnapshotHeader{}, fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return store.SnapshotHeader{}, fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(file.Name(), path); err != nil {
		return store.SnapshotHeader{}, fmt.Errorf("renaming snapshot into place: %w", err)
	}
	return header, nil
}
