package vault

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportVaultSealsIndependentEntries(t *testing.T) {
	v := NewReportVault(filepath.Join(t.TempDir(), "report_vault.jsonl"))

	_, err := v.Seal(ReportRecord{ReportID: "r1", ReportHash: "h1"})
	require.NoError(t, err)

	_, err = v.Seal(ReportRecord{ReportID: "r2", ReportHash: "h2"})
	require.NoError(t, err)

	all, err := v.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r1", all[0].ReportID)
	assert.Equal(t, "r2", all[1].ReportID)

	require.NoError(t, v.Verify())
}
