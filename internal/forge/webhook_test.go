package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignature(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)
	sig := Sign(payload, "s3cret")

	assert.True(t, ValidateSignature(payload, sig, "s3cret"))
	assert.False(t, ValidateSignature(payload, sig, "other"))
	assert.False(t, ValidateSignature([]byte(`{}`), sig, "s3cret"))
	assert.False(t, ValidateSignature(payload, "", "s3cret"))
	assert.False(t, ValidateSignature(payload, sig, ""))
	assert.False(t, ValidateSignature(payload, "sha1="+sig[len("sha256="):], "s3cret"))
}

func TestParsePushEvent(t *testing.T) {
	ev, err := ParsePushEvent([]byte(`{"ref":"refs/heads/main","repository":{"full_name":"EvolvingLMMs-Lab/lmms-eval"}}`))
	require.NoError(t, err)
	assert.Equal(t, "EvolvingLMMs-Lab/lmms-eval", ev.Repository)
	assert.Equal(t, "main", ev.Branch)
	assert.Empty(t, ev.Tag)

	ev, err = ParsePushEvent([]byte(`{"ref":"refs/tags/v0.6.1","repository":{"full_name":"o/r"}}`))
	require.NoError(t, err)
	assert.Equal(t, "v0.6.1", ev.Tag)

	_, err = ParsePushEvent([]byte(`not json`))
	require.Error(t, err)
}
