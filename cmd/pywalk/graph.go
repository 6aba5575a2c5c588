package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/pywalk/registry"
)

// readGraph loads a graph file. Files ending in .cbor hold a snapshot;
// anything else is a binary registry stream whose root is node 0.
func readGraph(path string) (*registry.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return registry.UnmarshalSnapshot(data)
	}
	mem := registry.NewMemory()
	if err := registry.Decode(data, mem); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("decoded %d nodes from %s", mem.Len(), path)
	return mem.Snapshot(0), nil
}

// writeGraph writes snap in the configured output format.
func writeGraph(path string, snap *registry.Snapshot, format string) error {
	var data []byte
	switch format {
	case "cbor":
		var err error
		if data, err = registry.MarshalSnapshot(snap); err != nil {
			return err
		}
	case "binary":
		bin := registry.NewBinary()
		snap.Memory().Replay(bin)
		var err error
		if data, err = bin.Bytes(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return os.WriteFile(path, data, 0o644)
}
