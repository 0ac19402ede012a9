package vault

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DatasetRecord is the payload sealed into the dataset vault for one
// canonicalizer run. Year/Month identify the run when it covers a
// single zone-month build; PeriodStart/PeriodEnd/SourceRefs are
// populated by multi-month zone builds, for which Year/Month hold the
// period's first month.
type DatasetRecord struct {
	DatasetEveID        string    `json:"dataset_eve_id"`
	Zone                string    `json:"zone"`
	Year                int       `json:"year"`
	Month               int       `json:"month"`
	PeriodStart         time.Time `json:"period_start,omitempty"`
	PeriodEnd           time.Time `json:"period_end,omitempty"`
	ManifestRootHash    string    `json:"manifest_root_hash"`
	MethodologyVersion  string    `json:"methodology_version"`
	EmissionScope       string    `json:"emission_scope,omitempty"`
	RegistryHash        string    `json:"registry_hash"`
	SourceRefs          []string  `json:"source_refs,omitempty"`
	SupersedesDatasetID string    `json:"supersedes_dataset_id,omitempty"`
}

// DatasetVault is the WORM log of sealed dataset builds.
type DatasetVault struct {
	chain *Chain
}

// NewDatasetVault opens the dataset vault backed by the JSONL file at
// path.
func NewDatasetVault(path string) *DatasetVault {
	return &DatasetVault{chain: Open(path)}
}

// Seal records one canonicalizer run. If baseID was never sealed
// before, it is used as-is. If it was, and the manifest root hash is
// unchanged and forceReseal is false, Seal is a no-op and returns the
// already-sealed entry (idempotent re-seal). Otherwise a new revision
// is appended under baseID suffixed with "_R{n}", n counted by linear
// scan of prior revisions of baseID, and SupersedesDatasetID records
// the entry it replaces.
func (v *DatasetVault) Seal(rec DatasetRecord, forceReseal bool) (Entry, error) {
	baseID := rec.DatasetEveID

	entries, err := v.chain.All()
	if err != nil {
		return Entry{}, err
	}

	var priorSameBase []DatasetRecord

	var lastEntry *Entry

	maxRev := 0

	for i := range entries {
		var existing DatasetRecord
		if err := json.Unmarshal(entries[i].Payload, &existing); err != nil {
			return Entry{}, fmt.Errorf("vault: decode dataset payload: %w", err)
		}

		if existing.DatasetEveID == baseID {
			priorSameBase = append(priorSameBase, existing)
			lastEntry = &entries[i]

			continue
		}

		if rev, ok := revisionNumber(existing.DatasetEveID, baseID); ok {
			priorSameBase = append(priorSameBase, existing)
			lastEntry = &entries[i]

			if rev > maxRev {
				maxRev = rev
			}
		}
	}

	if len(priorSameBase) == 0 {
		sealed, err := v.chain.Append(rec)
		if err != nil {
			return Entry{}, err
		}

		return sealed, nil
	}

	last := priorSameBase[len(priorSameBase)-1]
	if last.ManifestRootHash == rec.ManifestRootHash && !forceReseal {
		return *lastEntry, nil
	}

	next := maxRev + 1
	rec.DatasetEveID = fmt.Sprintf("%s_R%d", baseID, next)
	rec.SupersedesDatasetID = last.DatasetEveID

	return v.chain.Append(rec)
}

// revisionNumber reports whether id is baseID suffixed with "_R{n}",
// returning n.
func revisionNumber(id, baseID string) (int, bool) {
	prefix := baseID + "_R"
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil {
		return 0, false
	}

	return n, true
}

// Verify checks the dataset vault's hash chain is unbroken.
func (v *DatasetVault) Verify() error {
	return v.chain.Verify()
}

// All returns every sealed dataset record in append order.
func (v *DatasetVault) All() ([]DatasetRecord, error) {
	entries, err := v.chain.All()
	if err != nil {
		return nil, err
	}

	recs := make([]DatasetRecord, 0, len(entries))

	for _, e := range entries {
		var r DatasetRecord
		if err := json.Unmarshal(e.Payload, &r); err != nil {
			return nil, fmt.Errorf("vault: decode dataset payload: %w", err)
		}

		recs = append(recs, r)
	}

	return recs, nil
}

// Entries returns the raw chain entries backing this vault, in append
// order, for callers (the vault index rebuild) that need EventIndex and
// ChainHash alongside the decoded record.
func (v *DatasetVault) Entries() ([]Entry, error) {
	return v.chain.All()
}
