package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2025, 11, 30, 23, 0, 0, 0, time.FixedZone("X", -3600)) // Dec 1 UTC
	assert.Equal(t, "artifacts/2025/12/a.pdf", objectKey("a.pdf", at))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/portal-artifacts/artifacts/2025/11/a%20b.html",
		publicURL("https://cdn.example.com", "portal-artifacts", "artifacts/2025/11/a b.html"))
}

func TestPublicReadPolicy(t *testing.T) {
	raw, err := publicReadPolicy("portal-artifacts")
	require.NoError(t, err)

	var p bucketPolicy
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.Statement, 1)
	st := p.Statement[0]
	assert.Equal(t, "Allow", st.Effect)
	assert.Equal(t, []string{"s3:GetObject"}, st.Action)
	assert.Equal(t, []string{"arn:aws:s3:::portal-artifacts/*"}, st.Resource)
	assert.Equal(t, "public", st.Condition["StringEquals"]["s3:ExistingObjectTag/visibility"])
}
