package boltdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"
)

var (
	operationsBucket = []byte("Operations")
	receiptsBucket   = []byte("Receipts")
	mappingsBucket   = []byte("Mappings")
)

// Store is the embedded alternative to the redis store.
type Store struct {
	DB *bbolt.DB
}

func New(filePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0770); err != nil {
		return nil, fmt.Errorf("failed to create directory for bridge database: %w", err)
	}

	db, err := bbolt.Open(filePath, 0660, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bn := range [][]byte{operationsBucket, receiptsBucket, mappingsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bn); err != nil {
				return fmt.Errorf("could not bucket: %s, err: %w", string(bn), err)
			}
		}

		return nil
	})
	if err != nil {
		db.Close()

		return nil, err
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) SaveOperation(op *types.BridgeOperation) error {
	if op == nil || op.RequestID == "" || op.State == "" {
		return errors.New("bridge operation needs a request id and a state")
	}

	bytes, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("could not marshal operation: %w", err)
	}

	return s.DB.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(operationsBucket).Put([]byte(op.RequestID), bytes); err != nil {
			return fmt.Errorf("operation write error: %w", err)
		}

		if op.ID != "" {
			if err := tx.Bucket(receiptsBucket).Put([]byte(op.ID), []byte(op.RequestID)); err != nil {
				return fmt.Errorf("receipt index write error: %w", err)
			}
		}

		return nil
	})
}

func (s *Store) GetOperation(id string) (result *types.BridgeOperation, err error) {
	err = s.DB.View(func(tx *bbolt.Tx) error {
		key := []byte(id)
		if requestID := tx.Bucket(receiptsBucket).Get(key); len(requestID) > 0 {
			key = requestID
		}

		data := tx.Bucket(operationsBucket).Get(key)
		if len(data) == 0 {
			return fmt.Errorf("operation %s: %w", id, types.ErrNotFound)
		}

		return json.Unmarshal(data, &result)
	})

	return result, err
}

func (s *Store) GetOperations(state types.State) (result []*types.BridgeOperation, err error) {
	err = s.DB.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(operationsBucket).Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var op types.BridgeOperation

			if err := json.Unmarshal(v, &op); err != nil {
				return err
			}

			if op.State == state {
				result = append(result, &op)
			}
		}

		return nil
	})

	return result, err
}

func mappingKey(managerAddr, origin string) []byte {
	return append(common.HexToAddress(managerAddr).Bytes(), common.HexToAddress(origin).Bytes()...)
}

func (s *Store) GetMapping(managerAddr, origin string) (result *types.AddressMapping, err error) {
	err = s.DB.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(mappingsBucket).Get(mappingKey(managerAddr, origin))
		if len(data) == 0 {
			return types.ErrNotFound
		}

		return json.Unmarshal(data, &result)
	})

	return result, err
}

// SaveMapping stores m unless a mapping for the same key exists already.
func (s *Store) SaveMapping(m *types.AddressMapping) error {
	if m == nil || types.IsZeroAddress(m.Manager) || types.IsZeroAddress(m.Origin) || types.IsZeroAddress(m.Wrapped) {
		return errors.New("address mapping needs manager, origin and wrapped addresses")
	}

	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not marshal mapping: %w", err)
	}

	return s.DB.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(mappingsBucket)
		key := mappingKey(m.Manager, m.Origin)

		if len(bucket.Get(key)) > 0 {
			return nil
		}

		return bucket.Put(key, bytes)
	})
}

func (s *Store) GetMappings() (result []*types.AddressMapping, err error) {
	err = s.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(mappingsBucket).ForEach(func(_, v []byte) error {
			var m types.AddressMapping

			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}

			result = append(result, &m)

			return nil
		})
	})

	return result, err
}
