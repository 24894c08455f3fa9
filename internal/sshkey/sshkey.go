// Package sshkey manages the key pair shared by all benchmark VMs.
//
// The pair is generated once under the keys directory and reused by
// every provisioning run: the public half is authorized via cloud-init,
// the private half authenticates readiness polling and benchmark
// execution sessions.
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
)

const (
	// PrivateKeyFileName is the fixed private key file name.
	PrivateKeyFileName = "vm_key"

	// PublicKeyFileName is the fixed public key file name.
	PublicKeyFileName = "vm_key.pub"

	keyComment = "vmbench"
)

// KeyMaterial points at a generated key pair on disk.
type KeyMaterial struct {
	PrivateKeyPath string
	PublicKeyPath  string
}

// pathLocks serializes create-if-absent generation per key path so that
// concurrent provisioning runs never race to write the same pair.
var pathLocks sync.Map

// Ensure generates an ed25519 key pair under keysDir if one does not
// already exist, and returns the key material. It is idempotent and safe
// for concurrent use.
func Ensure(keysDir string) (*KeyMaterial, error) {
	km := &KeyMaterial{
		PrivateKeyPath: filepath.Join(keysDir, PrivateKeyFileName),
		PublicKeyPath:  filepath.Join(keysDir, PublicKeyFileName),
	}

	muIface, _ := pathLocks.LoadOrStore(km.PrivateKeyPath, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(km.PrivateKeyPath); err == nil {
		return km, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, keyComment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(km.PrivateKeyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}
	if err := os.WriteFile(km.PublicKeyPath, ssh.MarshalAuthorizedKey(sshPub), 0o644); err != nil {
		// Leave no half-written pair behind.
		_ = os.Remove(km.PrivateKeyPath)
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return km, nil
}

// Signer loads the private key for SSH authentication.
func (km *KeyMaterial) Signer() (ssh.Signer, error) {
	data, err := os.ReadFile(km.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return signer, nil
}

// AuthorizedKey returns the public key in authorized_keys format,
// trimmed of the trailing newline.
func (km *KeyMaterial) AuthorizedKey() (string, error) {
	data, err := os.ReadFile(km.PublicKeyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read public key: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
