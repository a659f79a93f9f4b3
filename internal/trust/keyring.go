package trust

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// LoadKeyring reads an OpenPGP public keyring, armored or binary
func LoadKeyring(keyPath string) (openpgp.EntityList, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	// Try to parse as armored key first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary key
		if _, err := keyFile.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("failed to rewind key file: %w", err)
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}

	return entityList, nil
}

// LoadKeyrings concatenates the keys of several keyring files
func LoadKeyrings(paths []string) (openpgp.EntityList, error) {
	var all openpgp.EntityList
	for _, p := range paths {
		entities, err := LoadKeyring(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, entities...)
	}
	return all, nil
}

// KeyIDs returns the ids of every primary key and subkey in entities. rpm
// packages are usually signed by the primary key but subkeys are accepted too.
func KeyIDs(entities openpgp.EntityList) []string {
	var ids []string
	for _, e := range entities {
		if e.PrimaryKey != nil {
			ids = append(ids, FormatKeyID(e.PrimaryKey.KeyId))
		}
		for _, sub := range e.Subkeys {
			if sub.PublicKey != nil {
				ids = append(ids, FormatKeyID(sub.PublicKey.KeyId))
			}
		}
	}
	return ids
}
