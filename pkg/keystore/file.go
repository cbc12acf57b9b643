package keystore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/curve25519"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// ExportFile writes kp to path readable only by the owner.
func ExportFile(path string, kp *KeyPair) error {
	data, err := marshalKeyPair(kp)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ImportFile reads a pair written by ExportFile.
func ImportFile(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	kp, err := unmarshalKeyPair(path, data)
	if err != nil {
		return nil, err
	}
	if NormalizeIdentity(kp.Identity) == "" {
		return nil, apperrors.NewCorruptError(path, fmt.Errorf("key file has no identity"))
	}
	pub, err := curve25519.X25519(kp.SecretKey[:], curve25519.Basepoint)
	if err != nil || !bytes.Equal(pub, kp.PublicKey[:]) {
		return nil, apperrors.NewCorruptError(path, fmt.Errorf("public key does not match secret key"))
	}
	return kp, nil
}
