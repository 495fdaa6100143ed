package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "whsec-test"
	body := `{"kind":"fulfillment.created","order_id":"ORD-100"}`

	signature := svc.Sign(secret, body)

	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, signature)
	assert.True(t, svc.Verify(secret, body, signature))
}

func TestHMACSignatureService_VerifyWithoutPrefix(t *testing.T) {
	svc := NewHMACSignatureService()
	signature := svc.Sign("key", "payload")

	bare := strings.TrimPrefix(signature, "sha256=")
	assert.True(t, svc.Verify("key", "payload", bare))
	assert.True(t, svc.Verify("key", "payload", strings.ToUpper(bare)))
}

func TestHMACSignatureService_VerifyFails(t *testing.T) {
	svc := NewHMACSignatureService()
	signature := svc.Sign("correct-key", "original payload")

	tests := []struct {
		name      string
		key       string
		payload   string
		signature string
	}{
		{"wrong key", "wrong-key", "original payload", signature},
		{"tampered payload", "correct-key", "tampered payload", signature},
		{"garbage signature", "correct-key", "original payload", "sha256=invalid"},
		{"empty signature", "correct-key", "original payload", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, svc.Verify(tt.key, tt.payload, tt.signature))
		})
	}
}

func TestHMACSignatureService_DeterministicSign(t *testing.T) {
	svc := NewHMACSignatureService()
	assert.Equal(t, svc.Sign("key", "data"), svc.Sign("key", "data"))
	assert.NotEqual(t, svc.Sign("key", "data"), svc.Sign("other", "data"))
}
