// Package boltstore persists accounts, characters, and room definitions in a
// bbolt database. The contract is strictly look-up-by-key,
// insert-if-absent, and update-by-key; game state never reads bolt directly
// during a tick.
package boltstore

import (
	"errors"
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

// Bucket name constants for bbolt storage.
var (
	bucketAccounts   = []byte("accounts")
	bucketCharacters = []byte("characters")
	bucketRooms      = []byte("rooms")
)

var (
	// ErrExists is returned by insert-if-absent operations on key collision.
	ErrExists = errors.New("boltstore: record already exists")

	// ErrNotFound is returned when a key has no record.
	ErrNotFound = errors.New("boltstore: record not found")
)

// Store wraps a bbolt database holding the persistent game records.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketCharacters, bucketRooms} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// CreateAccount inserts a new account record. Returns ErrExists if the name
// is taken; the name check and insert run in one transaction so two racing
// registrations cannot both succeed.
func (s *Store) CreateAccount(acct *Account) error {
	data, err := encodeAccount(acct)
	if err != nil {
		return fmt.Errorf("boltstore: encode account %q: %w", acct.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b.Get([]byte(acct.Name)) != nil {
			return ErrExists
		}
		return b.Put([]byte(acct.Name), data)
	})
}

// GetAccount looks up an account by name.
func (s *Store) GetAccount(name string) (*Account, error) {
	var acct *Account
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAccounts).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		var err error
		acct, err = decodeAccount(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// CreateCharacter inserts a new character record. Character names are
// globally unique; ErrExists on collision.
func (s *Store) CreateCharacter(ch *Character) error {
	data, err := encodeCharacter(ch)
	if err != nil {
		return fmt.Errorf("boltstore: encode character %q: %w", ch.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCharacters)
		if b.Get([]byte(ch.Name)) != nil {
			return ErrExists
		}
		return b.Put([]byte(ch.Name), data)
	})
}

// GetCharacter looks up a character by name.
func (s *Store) GetCharacter(name string) (*Character, error) {
	var ch *Character
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCharacters).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}
		var err error
		ch, err = decodeCharacter(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// UpdateCharacter overwrites an existing character record (update-by-key).
func (s *Store) UpdateCharacter(ch *Character) error {
	data, err := encodeCharacter(ch)
	if err != nil {
		return fmt.Errorf("boltstore: encode character %q: %w", ch.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCharacters)
		if b.Get([]byte(ch.Name)) == nil {
			return ErrNotFound
		}
		return b.Put([]byte(ch.Name), data)
	})
}

// CharactersByAccount returns all character records owned by an account.
func (s *Store) CharactersByAccount(accountName string) ([]*Character, error) {
	var chars []*Character
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCharacters).ForEach(func(_, data []byte) error {
			ch, err := decodeCharacter(data)
			if err != nil {
				return err
			}
			if ch.AccountName == accountName {
				chars = append(chars, ch)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return chars, nil
}

// PutRoom stores a room definition, overwriting any existing one.
func (s *Store) PutRoom(room *RoomRecord) error {
	data, err := encodeRoom(room)
	if err != nil {
		return fmt.Errorf("boltstore: encode room %q: %w", room.Title, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRooms).Put([]byte(room.Title), data)
	})
}

// GetRoom looks up a room definition by title.
func (s *Store) GetRoom(title string) (*RoomRecord, error) {
	var room *RoomRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRooms).Get([]byte(title))
		if data == nil {
			return ErrNotFound
		}
		var err error
		room, err = decodeRoom(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// AllRooms returns every stored room definition.
func (s *Store) AllRooms() ([]*RoomRecord, error) {
	var rooms []*RoomRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRooms).ForEach(func(_, data []byte) error {
			room, err := decodeRoom(data)
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
