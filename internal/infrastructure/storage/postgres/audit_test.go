package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_CompressesLargePayloads(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	small := json.RawMessage(`{"quantity":"3"}`)
	changes, compressed, algo := svc.encode(small)
	assert.Equal(t, CompressionNone, algo)
	assert.Nil(t, compressed)
	assert.Equal(t, small, changes)

	large := json.RawMessage(`{"note":"` + string(bytes.Repeat([]byte("a"), 8*1024)) + `"}`)
	changes, compressed, algo = svc.encode(large)
	assert.Equal(t, CompressionZstd, algo)
	assert.Nil(t, changes)
	assert.Less(t, len(compressed), len(large))

	decoded, err := svc.decode(changes, compressed, algo)
	require.NoError(t, err)
	assert.Equal(t, []byte(large), []byte(decoded))
}
