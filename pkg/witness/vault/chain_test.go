package vault

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Value int `json:"value"`
}

// unsortedPayload declares its JSON keys out of alphabetical order, so
// a plain json.Marshal would emit "zebra" before "apple".
type unsortedPayload struct {
	Zebra string `json:"zebra"`
	Apple string `json:"apple"`
}

func TestChainAppendLinksHashes(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "chain.jsonl"))

	e1, err := c.Append(samplePayload{Value: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, e1.EventIndex)
	assert.Equal(t, GenesisHash, e1.PrevHash)

	e2, err := c.Append(samplePayload{Value: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, e2.EventIndex)
	assert.Equal(t, e1.ChainHash, e2.PrevHash)

	require.NoError(t, c.Verify())
}

func TestChainVerifyFailsOnTamperedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.jsonl")
	c := Open(path)

	_, err := c.Append(samplePayload{Value: 1})
	require.NoError(t, err)

	entries, err := c.All()
	require.NoError(t, err)
	entries[0].Payload = []byte(`{"value":999}`)

	var body []byte

	for _, e := range entries {
		line, err := json.Marshal(e)
		require.NoError(t, err)
		body = append(body, line...)
		body = append(body, '\n')
	}

	require.NoError(t, os.WriteFile(path, body, 0o644))

	assert.Error(t, Open(path).Verify())
}

func TestChainAppendHashesStableKeyOrderNotDeclarationOrder(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "chain.jsonl"))

	e, err := c.Append(unsortedPayload{Zebra: "z", Apple: "a"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"apple":"a","zebra":"z"}`, string(e.Payload))
	assert.Equal(t, `{"apple":"a","zebra":"z"}`, string(e.Payload))

	wantSum := eventHash(e.Payload)
	assert.Equal(t, wantSum, e.EventHash)
}
