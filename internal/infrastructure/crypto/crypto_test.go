package crypto

import (
	"testing"
)

const testKey = "01234567890123456789012345678901" // 32 bytes for AES-256

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "valid key", key: testKey},
		{name: "short key", key: "too-short", wantErr: ErrInvalidKey},
		{name: "empty key", key: "", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.key)
			if err != tt.wantErr {
				t.Fatalf("NewEncryptor() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && enc == nil {
				t.Fatal("NewEncryptor() returned nil")
			}
		})
	}
}

func TestEncryptDecrypt_AccessToken(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	token := "access-sandbox-8ab976e6-64bc-4b38-98f7-731e7a349970"
	sealed, err := enc.Encrypt(token)
	if err != nil {
		t.Fatalf("Encrypt() failed: %v", err)
	}
	if sealed == token {
		t.Error("Encrypt() returned plaintext")
	}

	opened, err := enc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt() failed: %v", err)
	}
	if opened != token {
		t.Errorf("Decrypt() = %q, want %q", opened, token)
	}
}

func TestEncryptDecrypt_EmptyPassthrough(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	if got, err := enc.Encrypt(""); err != nil || got != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want \"\", nil", got, err)
	}
	if got, err := enc.Decrypt(""); err != nil || got != "" {
		t.Errorf("Decrypt(\"\") = %q, %v; want \"\", nil", got, err)
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	enc, _ := NewEncryptor(testKey)

	c1, _ := enc.Encrypt("access-xyz")
	c2, _ := enc.Encrypt("access-xyz")
	if c1 == c2 {
		t.Error("Encrypt() produced identical ciphertexts for the same token")
	}
}

func TestDecrypt_Failures(t *testing.T) {
	enc, _ := NewEncryptor(testKey)
	other, _ := NewEncryptor("98765432109876543210987654321098")
	sealed, _ := enc.Encrypt("access-xyz")

	tests := []struct {
		name       string
		ciphertext string
		decryptor  *Encryptor
	}{
		{name: "invalid base64", ciphertext: "not-valid-base64!!!", decryptor: enc},
		{name: "shorter than nonce", ciphertext: "YQ==", decryptor: enc},
		{name: "tampered", ciphertext: sealed[:len(sealed)-4] + "AAAA", decryptor: enc},
		{name: "wrong key", ciphertext: sealed, decryptor: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.decryptor.Decrypt(tt.ciphertext); err == nil {
				t.Error("Decrypt() expected error, got nil")
			}
		})
	}
}
