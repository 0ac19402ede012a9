package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ReportRecord is the payload sealed into the report vault for one
// query-engine answer. QueryHash is the computation identity
// (zone|from|to|methodology_version), independent of both the dataset
// identity it was computed over and the report artifact's own content
// hash (§3, §4.4).
type ReportRecord struct {
	ReportID           string   `json:"report_id"`
	QueryDescription   string   `json:"query_description"`
	ReportHash         string   `json:"report_hash"`
	QueryHash          string   `json:"query_hash,omitempty"`
	InputDatasetEveIDs []string `json:"input_dataset_eve_ids"`
	RootHash           string   `json:"root_hash,omitempty"`
	Zone               string   `json:"zone,omitempty"`
	PeriodFrom         string   `json:"period_from,omitempty"`
	PeriodTo           string   `json:"period_to,omitempty"`
	MethodologyVersion string   `json:"methodology_version"`
	Language           string   `json:"language,omitempty"`
	TemplateVersion    string   `json:"template_version,omitempty"`
	FXRate             float64  `json:"fx_rate,omitempty"`
	FXPeriod           string   `json:"fx_period,omitempty"`
	FXSource           string   `json:"fx_source,omitempty"`
	FXFileHash         string   `json:"fx_file_hash,omitempty"`
	RebuildCommand     string   `json:"rebuild_command"`
}

// QueryHash computes the deterministic identity of a (zone, from, to,
// methodology_version) query, independent of the dataset and report
// artifact hashes.
func QueryHash(zone, from, to, methodologyVersion string) string {
	sum := sha256.Sum256([]byte(zone + "|" + from + "|" + to + "|" + methodologyVersion))

	return hex.EncodeToString(sum[:])
}

// ReportVault is the WORM log of sealed query answers. Unlike the
// dataset vault, reports are never superseded in place: every query
// invocation seals a fresh, independent entry.
type ReportVault struct {
	chain *Chain
}

// NewReportVault opens the report vault backed by the JSONL file at
// path.
func NewReportVault(path string) *ReportVault {
	return &ReportVault{chain: Open(path)}
}

// Seal appends a new report entry and returns it.
func (v *ReportVault) Seal(rec ReportRecord) (Entry, error) {
	return v.chain.Append(rec)
}

// Verify checks the report vault's hash chain is unbroken.
func (v *ReportVault) Verify() error {
	return v.chain.Verify()
}

// All returns every sealed report record in append order.
func (v *ReportVault) All() ([]ReportRecord, error) {
	entries, err := v.chain.All()
	if err != nil {
		return nil, err
	}

	recs := make([]ReportRecord, 0, len(entries))

	for _, e := range entries {
		var r ReportRecord
		if err := json.Unmarshal(e.Payload, &r); err != nil {
			return nil, err
		}

		recs = append(recs, r)
	}

	return recs, nil
}

// Entries returns the raw chain entries backing this vault, in append
// order.
func (v *ReportVault) Entries() ([]Entry, error) {
	return v.chain.All()
}
