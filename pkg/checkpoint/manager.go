// Package checkpoint provides versioned, retained snapshots of an analysis
// session's project archive (its bytes plus metadata) on local disk.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/traceframe-dev/traceframe/pkg/persist"
)

// MetadataVersion is the current checkpoint metadata format version.
const MetadataVersion = 1

// Sentinel errors for checkpoint validation.
var (
	ErrProjectPathMismatch = errors.New("project path mismatch")
	ErrSchemaMismatch      = errors.New("schema version mismatch")
)

// DefaultDir returns the default checkpoint directory (~/.traceframe/checkpoints).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".traceframe", "checkpoints")
}

// ProjectHash computes a short, stable identifier for a project archive path,
// used as its checkpoint directory name.
func ProjectHash(projectPath string) string {
	h := sha256.Sum256([]byte(projectPath))

	return hex.EncodeToString(h[:8]) // First 8 bytes = 16 hex chars.
}

// Default retention values.
const (
	DefaultMaxAge  = 30 * 24 * time.Hour // 30 days.
	DefaultMaxSize = 1 << 30             // 1GB.
)

// Directory permissions for checkpoints.
const dirPerm = 0o750

// metadataBasename is the filename (minus extension) the metadata
// persister writes; combined with JSONCodec's extension this reproduces
// the checkpoint.json name callers expect via MetadataPath.
const metadataBasename = "checkpoint"

// Metadata describes a single checkpoint: which project archive it belongs
// to, when it was taken, and under which schema version.
type Metadata struct {
	Version       int               `json:"version"`
	ProjectPath   string            `json:"project_path"`
	ProjectHash   string            `json:"project_hash"`
	SchemaVersion int               `json:"schema_version"`
	CreatedAt     string            `json:"created_at"`
	Checksums     map[string]string `json:"checksums,omitempty"`
}

// Manager coordinates checkpoint snapshots for one project archive.
type Manager struct {
	BaseDir     string
	ProjectHash string
	MaxAge      time.Duration
	MaxSize     int64

	meta *persist.Persister[Metadata]
}

// NewManager creates a new checkpoint manager.
func NewManager(baseDir, projectHash string) *Manager {
	return &Manager{
		BaseDir:     baseDir,
		ProjectHash: projectHash,
		MaxAge:      DefaultMaxAge,
		MaxSize:     DefaultMaxSize,
		meta:        persist.NewPersister[Metadata](metadataBasename, persist.NewJSONCodec()),
	}
}

// CheckpointDir returns the directory for this project's checkpoint.
func (m *Manager) CheckpointDir() string {
	return filepath.Join(m.BaseDir, m.ProjectHash)
}

// MetadataPath returns the path to the metadata file.
func (m *Manager) MetadataPath() string {
	return filepath.Join(m.CheckpointDir(), "checkpoint.json")
}

// Exists returns true if a valid checkpoint exists.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.MetadataPath())

	return err == nil
}

// Clear removes the checkpoint for the current project.
func (m *Manager) Clear() error {
	cpDir := m.CheckpointDir()

	_, statErr := os.Stat(cpDir)
	if os.IsNotExist(statErr) {
		return nil
	}

	err := os.RemoveAll(cpDir)
	if err != nil {
		return fmt.Errorf("remove checkpoint dir: %w", err)
	}

	return nil
}

// Save writes archiveData (the project archive's serialized bytes) into the
// checkpoint directory, zstd-compressed, alongside metadata describing it.
func (m *Manager) Save(archiveData []byte, projectPath string, schemaVersion int) error {
	cpDir := m.CheckpointDir()

	err := os.MkdirAll(cpDir, dirPerm)
	if err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	snapshotPath := filepath.Join(cpDir, "snapshot.tfarchive")

	compressed, compressErr := compressSnapshot(archiveData)
	if compressErr != nil {
		return fmt.Errorf("compress snapshot: %w", compressErr)
	}

	writeErr := os.WriteFile(snapshotPath, compressed, 0o600)
	if writeErr != nil {
		return fmt.Errorf("write snapshot: %w", writeErr)
	}

	sum := sha256.Sum256(archiveData)

	saveErr := m.meta.Save(cpDir, func() *Metadata {
		return &Metadata{
			Version:       MetadataVersion,
			ProjectPath:   projectPath,
			ProjectHash:   m.ProjectHash,
			SchemaVersion: schemaVersion,
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
			Checksums:     map[string]string{"snapshot.tfarchive": hex.EncodeToString(sum[:])},
		}
	})
	if saveErr != nil {
		return fmt.Errorf("write metadata: %w", saveErr)
	}

	return nil
}

// LoadMetadata loads the checkpoint metadata without touching the snapshot payload.
func (m *Manager) LoadMetadata() (*Metadata, error) {
	var meta Metadata

	err := m.meta.Load(m.CheckpointDir(), func(loaded *Metadata) { meta = *loaded })
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	return &meta, nil
}

// Load restores the archive snapshot bytes, after validating the checkpoint
// matches the expected project path and schema version.
func (m *Manager) Load(projectPath string, schemaVersion int) ([]byte, error) {
	err := m.Validate(projectPath, schemaVersion)
	if err != nil {
		return nil, err
	}

	compressed, readErr := os.ReadFile(filepath.Join(m.CheckpointDir(), "snapshot.tfarchive"))
	if readErr != nil {
		return nil, fmt.Errorf("read snapshot: %w", readErr)
	}

	data, decompressErr := decompressSnapshot(compressed)
	if decompressErr != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", decompressErr)
	}

	return data, nil
}

// compressSnapshot zstd-compresses a checkpoint payload before it hits disk;
// project archives can reach tens of MB and checkpoints are retained under a
// size budget (see Prune), so compression buys more history per MaxSize.
func compressSnapshot(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := enc.Write(data); err != nil {
		enc.Close()

		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompressSnapshot(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return io.ReadAll(dec)
}

// Validate checks if the checkpoint is valid for the given parameters.
func (m *Manager) Validate(projectPath string, schemaVersion int) error {
	meta, err := m.LoadMetadata()
	if err != nil {
		return err
	}

	if meta.ProjectPath != projectPath {
		return fmt.Errorf("%w: checkpoint has %q, got %q", ErrProjectPathMismatch, meta.ProjectPath, projectPath)
	}

	if meta.SchemaVersion != schemaVersion {
		return fmt.Errorf("%w: checkpoint has %d, got %d", ErrSchemaMismatch, meta.SchemaVersion, schemaVersion)
	}

	return nil
}

// Prune removes checkpoint directories under baseDir older than maxAge, then,
// if the remaining total size still exceeds maxSize, removes the oldest
// checkpoints first until it no longer does. Returns the number of
// checkpoint directories removed.
func Prune(baseDir string, maxAge time.Duration, maxSize int64) (int, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("read checkpoint base dir: %w", err)
	}

	type checkpointDir struct {
		path    string
		modTime time.Time
		size    int64
	}

	var dirs []checkpointDir

	now := time.Now()
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(baseDir, entry.Name())

		info, statErr := entry.Info()
		if statErr != nil {
			continue
		}

		if now.Sub(info.ModTime()) > maxAge {
			if rmErr := os.RemoveAll(path); rmErr == nil {
				removed++
			}

			continue
		}

		dirs = append(dirs, checkpointDir{path: path, modTime: info.ModTime(), size: dirSize(path)})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime.Before(dirs[j].modTime) })

	var total int64
	for _, d := range dirs {
		total += d.size
	}

	for len(dirs) > 0 && total > maxSize {
		victim := dirs[0]
		dirs = dirs[1:]

		if rmErr := os.RemoveAll(victim.path); rmErr == nil {
			removed++
			total -= victim.size
		}
	}

	return removed, nil
}

func dirSize(path string) int64 {
	var total int64

	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		total += info.Size()

		return nil
	})

	return total
}
