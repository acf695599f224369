package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// CanEncrypt returns nil when a usable PGP public key is configured.
func (m *Mailer) CanEncrypt() error {
	cfg := m.cfg
	if cfg.PGPPublicKey == "" {
		return errors.New("no PGP public key configured")
	}
	if _, err := openpgp.ReadArmoredKeyRing(strings.NewReader(cfg.PGPPublicKey)); err != nil {
		return fmt.Errorf("parsing PGP public key: %w", err)
	}
	return nil
}

// encryptBody encrypts body to the armored public key and returns an armored
// PGP message.
func encryptBody(armoredKey, body string) (string, error) {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return "", fmt.Errorf("parsing public key: %w", err)
	}

	var buf bytes.Buffer
	armorWriter, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return "", fmt.Errorf("creating armor writer: %w", err)
	}
	encWriter, err := openpgp.Encrypt(armorWriter, entities, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("creating encrypt writer: %w", err)
	}
	if _, err := encWriter.Write([]byte(body)); err != nil {
		return "", fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return "", fmt.Errorf("closing encrypt writer: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", fmt.Errorf("closing armor writer: %w", err)
	}
	return buf.String(), nil
}
