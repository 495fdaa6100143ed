package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signaturePrefix tags the algorithm in the X-Webhook-Signature header.
const signaturePrefix = "sha256="

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secretKey and returns it as a
// header value: "sha256=" followed by lowercase hex.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign. The "sha256=" prefix is
// optional. Comparison is constant-time.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	expected := strings.TrimPrefix(s.Sign(secretKey, payload), signaturePrefix)
	got := strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(got)))
}
