package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "idp-secret"

func signHS(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "uid-123",
		"email": "ada@example.com",
		"name":  "Ada",
		"iss":   "https://idp.example.com",
		"aud":   "ravintola",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifier_HS256(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret, Issuer: "https://idp.example.com", Audience: "ravintola"})
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), signHS(t, baseClaims()))
	require.NoError(t, err)
	assert.Equal(t, "uid-123", id.UID)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "Ada", id.DisplayName)
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret, Issuer: "https://idp.example.com", Audience: "ravintola"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{"expired", func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }},
		{"no expiry", func(c jwt.MapClaims) { delete(c, "exp") }},
		{"wrong issuer", func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "someone-else" }},
		{"no subject", func(c jwt.MapClaims) { delete(c, "sub") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			tt.mutate(claims)
			_, err := v.Verify(context.Background(), signHS(t, claims))
			assert.Error(t, err)
		})
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	v, err := NewVerifier(Config{Secret: "other"})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), signHS(t, baseClaims()))
	assert.Error(t, err)
}

func TestVerifier_Garbage(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestVerifier_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	v, err := NewVerifier(Config{PublicKeyPEM: pemText, Secret: testSecret})
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims()).SignedString(key)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-123", id.UID)

	// HS256 must not be accepted once a public key is configured.
	_, err = v.Verify(context.Background(), signHS(t, baseClaims()))
	assert.Error(t, err)
}

func TestNewVerifier_Errors(t *testing.T) {
	_, err := NewVerifier(Config{})
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = NewVerifier(Config{PublicKeyPEM: "garbage"})
	assert.Error(t, err)
}
