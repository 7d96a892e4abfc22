package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestJWT mints an HS256 token matching verifyTenantJWT's expectations,
// for use across this package's tests.
func makeTestJWT(t *testing.T, secret, tenantID string, exp time.Time) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, err := json.Marshal(tenantClaims{TenantID: tenantID, Exp: exp.Unix()})
	require.NoError(t, err)
	payload := base64.RawURLEncoding.EncodeToString(claims)

	signingInput := header + "." + payload
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signingInput))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + sig
}

func TestVerifyTenantJWTAcceptsValidToken(t *testing.T) {
	token := makeTestJWT(t, "s3cret", "tenant-a", time.Now().Add(time.Hour))

	tenantID, err := verifyTenantJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", tenantID)
}

func TestVerifyTenantJWTRejectsBadSignature(t *testing.T) {
	token := makeTestJWT(t, "s3cret", "tenant-a", time.Now().Add(time.Hour))

	_, err := verifyTenantJWT(token, "wrong-secret")
	assert.ErrorIs(t, err, errBadSignature)
}

func TestVerifyTenantJWTRejectsExpiredToken(t *testing.T) {
	token := makeTestJWT(t, "s3cret", "tenant-a", time.Now().Add(-time.Hour))

	_, err := verifyTenantJWT(token, "s3cret")
	assert.ErrorIs(t, err, errExpiredToken)
}

func TestVerifyTenantJWTRejectsMalformedToken(t *testing.T) {
	_, err := verifyTenantJWT("not-a-jwt", "s3cret")
	assert.ErrorIs(t, err, errMalformedToken)
}

func TestVerifyTenantJWTRejectsMissingTenantClaim(t *testing.T) {
	token := makeTestJWT(t, "s3cret", "", time.Now().Add(time.Hour))

	_, err := verifyTenantJWT(token, "s3cret")
	assert.ErrorIs(t, err, errMalformedToken)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, constantTimeEqual("abc123", "abc123"))
	assert.False(t, constantTimeEqual("abc123", "abc124"))
	assert.False(t, constantTimeEqual("short", "muchlonger"))
}
