package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agronity/agronity-backend/internal/auth"
)

func TestIssueToken(t *testing.T) {
	token, err := issueToken("s3cret", "field-agent", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := auth.NewAuthenticator("s3cret", auth.Issuer).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "field-agent", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = issueToken("", "field-agent", "user", time.Hour)
	assert.Error(t, err)
}
