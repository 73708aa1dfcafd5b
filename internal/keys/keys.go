// Package keys manages the server's RSA signing keypair. The key is generated
// on first run and persisted as PEM so tokens survive restarts.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const KeySize = 2048

const privateKeyFile = "server_rsa.pem"

// GetOrGenerateRSAKeyPair loads the keypair from dir, generating and
// persisting a fresh one if none exists.
func GetOrGenerateRSAKeyPair(dir string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	path := filepath.Join(dir, privateKeyFile)

	if data, err := os.ReadFile(path); err == nil {
		privateKey, err := parsePrivateKeyPEM(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse persisted key: %w", err)
		}
		return privateKey, &privateKey.PublicKey, nil
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return nil, nil, fmt.Errorf("failed to persist key: %w", err)
	}

	log.Info().Str("path", path).Msg("Generated new RSA key pair")
	return privateKey, &privateKey.PublicKey, nil
}

func parsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}
