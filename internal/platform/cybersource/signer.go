package cybersource

import (
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AuthTypeHTTPSignature = "http_signature"
	AuthTypeJWT           = "jwt"
)

// signRequest attaches gateway authentication headers to req. body is the
// raw JSON payload, empty for GET requests.
func (c *Client) signRequest(req *http.Request, body []byte) error {
	switch c.cfg.AuthType {
	case AuthTypeJWT:
		return c.signJWT(req, body)
	default:
		return c.signHTTPSignature(req, body)
	}
}

// signHTTPSignature implements the shared-secret HMAC-SHA256 scheme: a
// signature over (request-target, host, date, digest, v-c-merchant-id).
func (c *Client) signHTTPSignature(req *http.Request, body []byte) error {
	secret, err := base64.StdEncoding.DecodeString(c.cfg.MerchantSecret)
	if err != nil {
		return fmt.Errorf("decode merchant secret: %w", err)
	}

	now := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("Date", now)
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("v-c-merchant-id", c.cfg.MerchantID)

	headerList := []string{"host", "date", "request-target", "v-c-merchant-id"}
	pairs := []string{
		"host: " + req.URL.Host,
		"date: " + now,
		fmt.Sprintf("request-target: %s %s", strings.ToLower(req.Method), req.URL.RequestURI()),
		"v-c-merchant-id: " + c.cfg.MerchantID,
	}

	if len(body) > 0 {
		digest := sha256.Sum256(body)
		digestValue := "SHA-256=" + base64.StdEncoding.EncodeToString(digest[:])
		req.Header.Set("Digest", digestValue)
		headerList = append(headerList[:2], append([]string{"digest"}, headerList[2:]...)...)
		pairs = append(pairs[:2], append([]string{"digest: " + digestValue}, pairs[2:]...)...)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Signature", fmt.Sprintf(
		`keyid="%s", algorithm="HmacSHA256", headers="%s", signature="%s"`,
		c.cfg.MerchantKey, strings.Join(headerList, " "), signature,
	))
	return nil
}

// signJWT implements the certificate-backed scheme: an RS256 token carrying
// the body digest, sent as a Bearer header.
func (c *Client) signJWT(req *http.Request, body []byte) error {
	if c.signingKey == nil {
		return ErrNotReady
	}

	claims := jwt.MapClaims{
		"iat": time.Now().UTC().Unix(),
		"iss": c.cfg.MerchantID,
	}
	if len(body) > 0 {
		digest := sha256.Sum256(body)
		claims["digest"] = base64.StdEncoding.EncodeToString(digest[:])
		claims["digestAlgorithm"] = "SHA-256"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["v-c-merchant-id"] = c.cfg.MerchantID
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return fmt.Errorf("sign jwt: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

// loadSigningKey reads the merchant certificate key from disk. Returns an
// error when the file is absent or not a usable RSA key; the caller treats
// that as "client not ready" rather than fatal.
func loadSigningKey(dir, file string) (*rsa.PrivateKey, error) {
	if file == "" {
		return nil, fmt.Errorf("certificate file not configured")
	}
	if !strings.Contains(file, ".") {
		file += ".pem"
	}

	raw, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("certificate %s is not PEM encoded", file)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("certificate key is not RSA")
	}
	return key, nil
}
