package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gradesubmission/internal/client/storage"
)

// Сессии лежат в bucket sessions: ключ - адрес сервера, значение - JSON AuthData.

// SaveAuth stores the session under its server URL
func (s *Storage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if auth.ServerURL == "" {
		return storage.ErrNoServerURL
	}

	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	return s.update(func(b *bbolt.Bucket) error {
		if err := b.Put([]byte(auth.ServerURL), data); err != nil {
			return fmt.Errorf("failed to save auth data: %w", err)
		}
		return nil
	})
}

// GetAuth retrieves the session for serverURL
func (s *Storage) GetAuth(ctx context.Context, serverURL string) (*storage.AuthData, error) {
	var auth storage.AuthData

	err := s.view(func(b *bbolt.Bucket) error {
		data := b.Get([]byte(serverURL))
		if data == nil {
			return storage.ErrAuthNotFound
		}
		// Данные bbolt валидны только внутри транзакции, Unmarshal копирует их
		return decodeAuth(data, &auth)
	})
	if err != nil {
		return nil, err
	}

	return &auth, nil
}

// DeleteAuth removes the session for serverURL
func (s *Storage) DeleteAuth(ctx context.Context, serverURL string) error {
	return s.update(func(b *bbolt.Bucket) error {
		key := []byte(serverURL)
		if b.Get(key) == nil {
			return storage.ErrAuthNotFound
		}
		if err := b.Delete(key); err != nil {
			return fmt.Errorf("failed to delete auth data: %w", err)
		}
		return nil
	})
}

// ListAuth returns every stored session; bbolt keeps keys sorted
func (s *Storage) ListAuth(ctx context.Context) ([]storage.AuthData, error) {
	var sessions []storage.AuthData

	err := s.view(func(b *bbolt.Bucket) error {
		return b.ForEach(func(_, data []byte) error {
			var auth storage.AuthData
			if err := decodeAuth(data, &auth); err != nil {
				return err
			}
			sessions = append(sessions, auth)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

func decodeAuth(data []byte, auth *storage.AuthData) error {
	if err := json.Unmarshal(data, auth); err != nil {
		return fmt.Errorf("failed to unmarshal auth data: %w", err)
	}
	return nil
}

// view и update открывают транзакцию и передают в fn bucket сессий

func (s *Storage) view(fn func(b *bbolt.Bucket) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		b, err := sessionsBucket(tx)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func (s *Storage) update(fn func(b *bbolt.Bucket) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := sessionsBucket(tx)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func sessionsBucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket(bucketSessions)
	if b == nil {
		return nil, fmt.Errorf("sessions bucket not found")
	}
	return b, nil
}
