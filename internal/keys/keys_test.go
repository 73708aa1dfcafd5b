package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetOrGenerateRSAKeyPair_ShouldPersistAndReload(t *testing.T) {
	// given
	dir := t.TempDir()

	// when
	privateKey, publicKey, err := GetOrGenerateRSAKeyPair(dir)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if privateKey == nil || publicKey == nil {
		t.Fatalf("expected a generated keypair")
	}
	if _, err := os.Stat(filepath.Join(dir, "server_rsa.pem")); err != nil {
		t.Fatalf("expected key persisted to disk: %v", err)
	}

	// when: loading again from the same directory
	reloaded, _, err := GetOrGenerateRSAKeyPair(dir)

	// then
	if err != nil {
		t.Fatalf("unexpected error on reload: %v", err)
	}
	if reloaded.D.Cmp(privateKey.D) != 0 {
		t.Fatalf("reload must return the persisted key, not a new one")
	}
}

func TestGetOrGenerateRSAKeyPair_ShouldFailOnCorruptKeyFile(t *testing.T) {
	// given
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "server_rsa.pem"), []byte("not a key"), 0600); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	// when
	_, _, err := GetOrGenerateRSAKeyPair(dir)

	// then
	if err == nil {
		t.Fatalf("corrupt key material must not be silently replaced")
	}
}
