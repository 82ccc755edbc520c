// Package crypto encrypts cluster kubeconfigs before they are stored in
// the database. The Fernet key comes from KUBETERM_SECRET_KEY when set;
// otherwise it is generated on first use and persisted in the settings
// table, so a database copied without its data directory still cannot
// reveal cluster credentials.
package crypto

import (
	"fmt"
	"log"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/kubeterm/kubeterm/internal/config"
	"github.com/kubeterm/kubeterm/internal/database"
)

func getKey() (*fernet.Key, error) {
	if config.Cfg.SecretKey != "" {
		key, err := fernet.DecodeKey(config.Cfg.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("decode configured secret key: %w", err)
		}
		return key, nil
	}

	keyStr, err := database.GetSetting("fernet_key")
	if err != nil {
		var k fernet.Key
		k.Generate()
		keyStr = k.Encode()
		if err := database.SetSetting("fernet_key", keyStr); err != nil {
			return nil, fmt.Errorf("save fernet key: %w", err)
		}
		log.Printf("[crypto] generated encryption key %s", Mask(keyStr))
		return &k, nil
	}

	key, err := fernet.DecodeKey(keyStr)
	if err != nil {
		return nil, fmt.Errorf("decode fernet key: %w", err)
	}
	return key, nil
}

// Encrypt signs and encrypts plaintext with the stored Fernet key.
func Encrypt(plaintext string) (string, error) {
	key, err := getKey()
	if err != nil {
		return "", err
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), key)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt verifies and decrypts a token produced by Encrypt. Tokens do not
// expire (TTL 0).
func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	key, err := getKey()
	if err != nil {
		return "", err
	}
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), 0*time.Second, []*fernet.Key{key})
	if msg == nil {
		return "", fmt.Errorf("decrypt: invalid token")
	}
	return string(msg), nil
}

// Mask hides all but the last 4 characters of a secret for display.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > 4 {
		return "****" + value[len(value)-4:]
	}
	return "****"
}
