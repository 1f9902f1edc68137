// Package artifacts persists model artifacts on the local filesystem, one
// directory per version:
//
//	<root>/v3/model.msgpack
//	<root>/v3/scaler.msgpack
//	<root>/v3/metadata.json
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kilianp07/fleetintel/core/registry"
	"github.com/kilianp07/fleetintel/core/regression"
)

const (
	ModelFile    = "model.msgpack"
	ScalerFile   = "scaler.msgpack"
	MetadataFile = "metadata.json"
)

// FSStore implements registry.Store on a directory tree.
type FSStore struct {
	root string
}

// NewFSStore returns a store rooted at dir, creating it when missing.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Root returns the store directory.
func (s *FSStore) Root() string { return s.root }

// Versions lists every version directory, complete or not.
func (s *FSStore) Versions(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := registry.ParseVersion(e.Name()); ok {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Complete reports whether the model, scaler and metadata files are present.
func (s *FSStore) Complete(_ context.Context, version string) bool {
	for _, name := range []string{ModelFile, ScalerFile, MetadataFile} {
		info, err := os.Stat(filepath.Join(s.root, version, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

func (s *FSStore) Read(_ context.Context, version string) (registry.Artifact, error) {
	dir := filepath.Join(s.root, version)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return registry.Artifact{}, fmt.Errorf("version %s: %w", version, registry.ErrVersionNotFound)
	}

	var md, sd regression.Descriptor
	if err := readMsgpack(filepath.Join(dir, ModelFile), &md); err != nil {
		return registry.Artifact{}, err
	}
	if err := readMsgpack(filepath.Join(dir, ScalerFile), &sd); err != nil {
		return registry.Artifact{}, err
	}
	reg, err := regression.LoadRegressor(md)
	if err != nil {
		return registry.Artifact{}, fmt.Errorf("version %s: %w", version, err)
	}
	sc, err := regression.LoadScaler(sd)
	if err != nil {
		return registry.Artifact{}, fmt.Errorf("version %s: %w", version, err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return registry.Artifact{}, fmt.Errorf("read metadata: %w", err)
	}
	var meta registry.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return registry.Artifact{}, fmt.Errorf("decode metadata: %w", err)
	}
	if meta.Version == "" {
		meta.Version = version
	}
	return registry.Artifact{Version: version, Regressor: reg, Scaler: sc, Metadata: meta}, nil
}

// Write stores the artifact in a staging directory and renames it into place,
// so readers never observe a partially written version. Existing versions are
// never overwritten.
func (s *FSStore) Write(_ context.Context, a registry.Artifact) error {
	if _, ok := registry.ParseVersion(a.Version); !ok {
		return fmt.Errorf("invalid version %q", a.Version)
	}
	final := filepath.Join(s.root, a.Version)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("version %s already exists", a.Version)
	}
	staging, err := os.MkdirTemp(s.root, "."+a.Version+"-")
	if err != nil {
		return fmt.Errorf("stage %s: %w", a.Version, err)
	}
	defer os.RemoveAll(staging)

	if err := writeMsgpack(filepath.Join(staging, ModelFile), regression.Describe(a.Regressor)); err != nil {
		return err
	}
	if err := writeMsgpack(filepath.Join(staging, ScalerFile), regression.Describe(a.Scaler)); err != nil {
		return err
	}
	meta, err := json.MarshalIndent(a.Metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, MetadataFile), meta, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("publish %s: %w", a.Version, err)
	}
	return nil
}

func writeMsgpack(path string, d regression.Descriptor) error {
	data, err := msgpack.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readMsgpack(path string, d *regression.Descriptor) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := msgpack.Unmarshal(data, d); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
