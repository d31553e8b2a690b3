package cybersource

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/artsarchive/giving/pkg/config"
)

func TestSignHTTPSignature_HeaderOrder(t *testing.T) {
	c := &Client{
		cfg: cfgpkg.CyberSourceConfig{
			AuthType:       AuthTypeHTTPSignature,
			MerchantID:     "merchant-1",
			MerchantKey:    "key-1",
			MerchantSecret: base64.StdEncoding.EncodeToString([]byte("shared-secret")),
		},
		log: zap.NewNop().Sugar(),
	}

	req, err := http.NewRequest(http.MethodPost, "https://apitest.cybersource.com/pts/v2/payments", nil)
	require.NoError(t, err)

	body := []byte(`{"clientReferenceInformation":{"code":"AAA-1-1"}}`)
	require.NoError(t, c.signRequest(req, body))

	require.NotEmpty(t, req.Header.Get("Date"))
	require.Equal(t, "merchant-1", req.Header.Get("v-c-merchant-id"))
	require.True(t, strings.HasPrefix(req.Header.Get("Digest"), "SHA-256="))

	sig := req.Header.Get("Signature")
	require.Contains(t, sig, `keyid="key-1"`)
	require.Contains(t, sig, `headers="host date digest request-target v-c-merchant-id"`)
}

func TestSignHTTPSignature_NoDigestWithoutBody(t *testing.T) {
	c := &Client{
		cfg: cfgpkg.CyberSourceConfig{
			MerchantID:     "merchant-1",
			MerchantKey:    "key-1",
			MerchantSecret: base64.StdEncoding.EncodeToString([]byte("shared-secret")),
		},
		log: zap.NewNop().Sugar(),
	}

	req, err := http.NewRequest(http.MethodGet, "https://apitest.cybersource.com/tss/v2/transactions/tx-1", nil)
	require.NoError(t, err)

	require.NoError(t, c.signRequest(req, nil))
	require.Empty(t, req.Header.Get("Digest"))
	require.Contains(t, req.Header.Get("Signature"), `headers="host date request-target v-c-merchant-id"`)
}

func TestSignHTTPSignature_RejectsBadSecret(t *testing.T) {
	c := &Client{
		cfg: cfgpkg.CyberSourceConfig{
			MerchantID:     "merchant-1",
			MerchantKey:    "key-1",
			MerchantSecret: "not base64!!",
		},
		log: zap.NewNop().Sugar(),
	}

	req, err := http.NewRequest(http.MethodPost, "https://apitest.cybersource.com/pts/v2/payments", nil)
	require.NoError(t, err)
	require.Error(t, c.signRequest(req, []byte(`{}`)))
}

func TestSignJWT_BearerToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	c := &Client{
		cfg: cfgpkg.CyberSourceConfig{
			AuthType:   AuthTypeJWT,
			MerchantID: "merchant-1",
		},
		log:        zap.NewNop().Sugar(),
		signingKey: key,
	}

	req, err := http.NewRequest(http.MethodPost, "https://apitest.cybersource.com/pts/v2/payments", nil)
	require.NoError(t, err)

	body := []byte(`{"orderInformation":{}}`)
	require.NoError(t, c.signRequest(req, body))

	auth := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "))

	token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, "merchant-1", claims["iss"])
	require.NotEmpty(t, claims["digest"])
}

func TestSignJWT_RequiresKey(t *testing.T) {
	c := &Client{
		cfg: cfgpkg.CyberSourceConfig{AuthType: AuthTypeJWT, MerchantID: "merchant-1"},
		log: zap.NewNop().Sugar(),
	}

	req, err := http.NewRequest(http.MethodPost, "https://apitest.cybersource.com/pts/v2/payments", nil)
	require.NoError(t, err)
	require.ErrorIs(t, c.signRequest(req, nil), ErrNotReady)
}
