package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// VAPIDKeysFileName is stored next to config.toml.
const VAPIDKeysFileName = "push_vapid_keys.json"

type vapidKeysFile struct {
	PublicKey  string    `json:"publicKey"`
	PrivateKey string    `json:"privateKey"`
	Subject    string    `json:"subject,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// VAPIDKeys is a persisted application server keypair.
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// EnsureVAPIDKeys loads the keypair in dir, generating and saving one on
// first use. generated reports whether a new pair was created.
func EnsureVAPIDKeys(dir, subject string) (keys VAPIDKeys, generated bool, err error) {
	path := filepath.Join(dir, VAPIDKeysFileName)
	subject = strings.TrimSpace(subject)

	file, loadErr := loadVAPIDKeys(path)
	switch {
	case loadErr == nil:
		if subject != "" && file.Subject != subject {
			file.Subject = subject
			file.UpdatedAt = time.Now().UTC()
			if err := writeVAPIDKeys(path, file); err != nil {
				return VAPIDKeys{}, false, err
			}
		}
		return VAPIDKeys{PublicKey: file.PublicKey, PrivateKey: file.PrivateKey, Subject: file.Subject}, false, nil
	case !errors.Is(loadErr, os.ErrNotExist):
		return VAPIDKeys{}, false, loadErr
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return VAPIDKeys{}, false, fmt.Errorf("generate vapid keypair: %w", err)
	}
	now := time.Now().UTC()
	file = &vapidKeysFile{
		PublicKey:  strings.TrimSpace(publicKey),
		PrivateKey: strings.TrimSpace(privateKey),
		Subject:    subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := writeVAPIDKeys(path, file); err != nil {
		return VAPIDKeys{}, false, err
	}
	return VAPIDKeys{PublicKey: file.PublicKey, PrivateKey: file.PrivateKey, Subject: subject}, true, nil
}

func loadVAPIDKeys(path string) (*vapidKeysFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("read vapid keys: %w", err)
	}
	var file vapidKeysFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse vapid keys: %w", err)
	}
	file.PublicKey = strings.TrimSpace(file.PublicKey)
	file.PrivateKey = strings.TrimSpace(file.PrivateKey)
	file.Subject = strings.TrimSpace(file.Subject)
	if file.PublicKey == "" || file.PrivateKey == "" {
		return nil, fmt.Errorf("vapid keys file is missing required keys")
	}
	return &file, nil
}

func writeVAPIDKeys(path string, file *vapidKeysFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir vapid dir: %w", err)
	}
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vapid keys: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write temp vapid keys: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename vapid keys: %w", err)
	}
	return nil
}
