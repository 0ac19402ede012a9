// Package manifest builds the per-run file manifest: a SHA-256 digest of
// every output file in ascending path order, folded into a single root
// hash, so that any change to any file in a run is detectable without
// re-reading the whole tree.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the manifest format version, bumped whenever the JSON
// shape below changes in a way old readers can't tolerate.
const SchemaVersion = "1"

// manifestFileName is excluded from Build's file walk: a manifest must
// never hash itself or its own sidecar, or its root hash would depend
// on whether a prior Write had already run in the same directory.
const manifestFileName = "manifest.json"

// FileEntry is one file's digest within a manifest.
type FileEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// Manifest is the root-hashed, ordered digest list for one run's output
// directory, plus the build metadata the spec's manifest schema (§3)
// requires alongside it: methodology/zone/period identity and the
// source streams that fed the build.
type Manifest struct {
	SchemaVersion      string      `json:"schema_version"`
	DatasetEveID       string      `json:"dataset_eve_id"`
	MethodologyVersion string      `json:"methodology_version,omitempty"`
	EmissionScope      string      `json:"emission_scope,omitempty"`
	Zone               string      `json:"zone,omitempty"`
	PeriodStart        time.Time   `json:"period_start,omitempty"`
	PeriodEnd          time.Time   `json:"period_end,omitempty"`
	BuildTimestampUTC  time.Time   `json:"build_timestamp_utc,omitempty"`
	TotalRows          int         `json:"total_rows,omitempty"`
	TotalFiles         int         `json:"total_files"`
	SourceRefs         []string    `json:"source_refs,omitempty"`
	RootHash           string      `json:"root_hash"`
	Files              []FileEntry `json:"files"`
}

// DatasetMeta is the per-zone build identity threaded into a Manifest
// alongside its file digests.
type DatasetMeta struct {
	DatasetEveID       string
	MethodologyVersion string
	EmissionScope      string
	Zone               string
	PeriodStart        time.Time
	PeriodEnd          time.Time
	SourceRefs         []string
}

// BuildDataset hashes dir the same way Build does, then stamps the
// result with meta and buildTimestamp. TotalRows is left at zero: only
// the caller (which streamed the rows while writing the NDJSON files)
// knows the true row count, and is expected to set it before Write.
func BuildDataset(dir string, meta DatasetMeta, buildTimestamp time.Time) (*Manifest, error) {
	m, err := Build(dir, meta.DatasetEveID)
	if err != nil {
		return nil, err
	}

	m.MethodologyVersion = meta.MethodologyVersion
	m.EmissionScope = meta.EmissionScope
	m.Zone = meta.Zone
	m.PeriodStart = meta.PeriodStart
	m.PeriodEnd = meta.PeriodEnd
	m.BuildTimestampUTC = buildTimestamp
	m.TotalFiles = len(m.Files)
	m.SourceRefs = meta.SourceRefs

	return m, nil
}

// hashFile streams a file through SHA-256 without loading it fully into
// memory.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()

	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Build walks dir, hashes every regular file found beneath it, and
// returns a Manifest whose Files are sorted by path ascending. Paths in
// the manifest are relative to dir and use forward slashes regardless
// of host OS, so the manifest is portable and its root hash is
// reproducible across machines.
func Build(dir, datasetEveID string) (*Manifest, error) {
	var entries []FileEntry

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if name := info.Name(); name == manifestFileName || name == manifestFileName+".sha256" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		sum, size, err := hashFile(path)
		if err != nil {
			return err
		}

		entries = append(entries, FileEntry{
			Path:   filepath.ToSlash(rel),
			SHA256: sum,
			Bytes:  size,
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: walk %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	m := &Manifest{
		SchemaVersion: SchemaVersion,
		DatasetEveID:  datasetEveID,
		TotalFiles:    len(entries),
		Files:         entries,
	}
	m.RootHash = rootHash(entries)

	return m, nil
}

// rootHash is the SHA-256 of the plain concatenation of the entries'
// hex digests, no delimiter, in the manifest's locked ascending-path
// order (spec §4.3/Glossary: "concatenate the hex digests (no
// delimiter)"). Any implementation that reproduces the same per-file
// hashes in the same order must land on the same root hash.
func rootHash(entries []FileEntry) string {
	var b strings.Builder

	for _, e := range entries {
		b.WriteString(e.SHA256)
	}

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

// Write serializes the manifest as 2-space-indented JSON to
// <dir>/manifest.json and its SHA-256 digest to
// <dir>/manifest.json.sha256, the companion checksum file consumers use
// to verify the manifest wasn't altered in transit.
func Write(dir string, m *Manifest) error {
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}

	manifestPath := filepath.Join(dir, manifestFileName)
	if err := os.WriteFile(manifestPath, body, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", manifestPath, err)
	}

	sum := sha256.Sum256(body)
	sidecar := manifestPath + ".sha256"
	line := hex.EncodeToString(sum[:]) + "  manifest.json\n"

	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", sidecar, err)
	}

	return nil
}
