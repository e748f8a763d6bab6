package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName = "receipts"
	itemBucketName    = "items"
)

var (
	// ErrNotFound is returned when a receipt or item does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a manual correction is rejected
	ErrInvalidInput = errors.New("invalid input")
)

// DB defines the interface for database operations
type DB interface {
	// SaveReceipt saves a receipt and replaces all of its items
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt and its items by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts with their items
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt and its items
	DeleteReceipt(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Items are stored in their
// own bucket under "<receiptID>/<position>" so a prefix scan returns them in
// receipt order.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptBucketName, itemBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func itemPrefix(receiptID string) []byte {
	return []byte(receiptID + "/")
}

func itemKey(receiptID string, position int) []byte {
	return []byte(fmt.Sprintf("%s/%06d", receiptID, position))
}

// deleteItems removes every item stored under a receipt
func deleteItems(items *bbolt.Bucket, receiptID string) error {
	prefix := itemPrefix(receiptID)
	c := items.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := items.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// loadItems reads the items of a receipt in position order
func loadItems(items *bbolt.Bucket, receiptID string) ([]*Item, error) {
	prefix := itemPrefix(receiptID)
	out := make([]*Item, 0)
	c := items.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var item Item
		if err := json.Unmarshal(v, &item); err != nil {
			return nil, fmt.Errorf("unmarshaling item: %w", err)
		}
		out = append(out, &item)
	}
	return out, nil
}

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		record := *receipt
		record.Items = nil
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		if err := tx.Bucket([]byte(receiptBucketName)).Put([]byte(receipt.ID), data); err != nil {
			return err
		}

		items := tx.Bucket([]byte(itemBucketName))
		if err := deleteItems(items, receipt.ID); err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}
		for _, item := range receipt.Items {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshaling item: %w", err)
			}
			if err := items.Put(itemKey(receipt.ID, item.Position), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
		}
		if err := json.Unmarshal(data, &receipt); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		items, err := loadItems(tx.Bucket([]byte(itemBucketName)), id)
		if err != nil {
			return err
		}
		receipt.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		items := tx.Bucket([]byte(itemBucketName))
		return tx.Bucket([]byte(receiptBucketName)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			loaded, err := loadItems(items, receipt.ID)
			if err != nil {
				return err
			}
			receipt.Items = loaded
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt from the database
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(receiptBucketName)).Delete([]byte(id)); err != nil {
			return err
		}
		return deleteItems(tx.Bucket([]byte(itemBucketName)), id)
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
