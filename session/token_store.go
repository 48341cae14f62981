package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jmcleod/switchboard/internal/util"
	"github.com/jmcleod/switchboard/storage"
)

const (
	tokenBucket     = "__console"
	tokenRecordType = "TOKEN"
	tokenRecordID   = "current"
	tokenAAD        = "switchboard:token:v1"
	tokenKeyInfo    = "switchboard:token-key:v1"
)

// TokenStore is the durable home of the session token.
type TokenStore interface {
	// Load returns the saved token, or "" when none is saved.
	Load() (string, error)
	Save(token string) error
	// Clear removes the saved token. Clearing an empty store is not an error.
	Clear() error
}

// SealedTokenStore keeps a single token in a storage.Repository, encrypted
// with AES-256-GCM under a key derived from an external wrapping key.
type SealedTokenStore struct {
	repo      storage.Repository
	key       []byte
	closeOnce sync.Once
}

var _ TokenStore = (*SealedTokenStore)(nil)

// NewSealedTokenStore returns a TokenStore backed by repo. wrappingKey must
// be storage.KeySize bytes and is never written to the repository.
func NewSealedTokenStore(repo storage.Repository, wrappingKey []byte) (*SealedTokenStore, error) {
	if len(wrappingKey) != storage.KeySize {
		return nil, fmt.Errorf("wrapping key must be exactly %d bytes, got %d", storage.KeySize, len(wrappingKey))
	}
	key, err := util.DeriveKey(wrappingKey, tokenKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("deriving token key: %w", err)
	}
	return &SealedTokenStore{repo: repo, key: key}, nil
}

func (s *SealedTokenStore) Load() (string, error) {
	env, err := s.repo.Get(tokenBucket, tokenRecordType, tokenRecordID)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBucketNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading token record: %w", err)
	}
	data, err := storage.OpenRecord(s.key, env, []byte(tokenAAD))
	if err != nil {
		return "", fmt.Errorf("opening token record: %w", err)
	}
	defer util.WipeBytes(data)
	return string(data), nil
}

func (s *SealedTokenStore) Save(token string) error {
	env, err := storage.SealRecord(s.key, []byte(token), []byte(tokenAAD))
	if err != nil {
		return fmt.Errorf("sealing token record: %w", err)
	}
	if err := s.repo.Put(tokenBucket, tokenRecordType, tokenRecordID, env); err != nil {
		return fmt.Errorf("saving token record: %w", err)
	}
	return nil
}

func (s *SealedTokenStore) Clear() error {
	err := s.repo.Delete(tokenBucket, tokenRecordType, tokenRecordID)
	if err == nil || errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBucketNotFound) {
		return nil
	}
	return fmt.Errorf("clearing token record: %w", err)
}

// Close wipes the derived key. The store must not be used afterwards.
func (s *SealedTokenStore) Close() {
	s.closeOnce.Do(func() {
		util.WipeBytes(s.key)
	})
}
