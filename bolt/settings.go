// Package bolt stores device settings in a bbolt file, one bucket per
// namespace.
package bolt

import (
	"fmt"
	"time"

	"bsid.es/despertador"
	"go.etcd.io/bbolt"
)

type Settings struct {
	db *bbolt.DB
}

var _ despertador.Settings = (*Settings)(nil)

// Open opens or creates the bbolt file at path.
func Open(path string) (*Settings, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Settings{db: db}, nil
}

func (s *Settings) Close() error {
	return s.db.Close()
}

func (s *Settings) Get(namespace, key string) (value string, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// v is only valid inside the transaction.
			value, ok = string(v), true
		}
		return nil
	})
	return value, ok, err
}

// Set writes all values in a single read-write transaction.
func (s *Settings) Set(namespace string, values map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		for k, v := range values {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return fmt.Errorf("put %s/%s: %w", namespace, k, err)
			}
		}
		return nil
	})
}
