package boltstore

import (
	"bytes"
	"encoding/gob"
)

// Account is a persistent account record. PasswordHash is derived from the
// password and Salt by the server's configured Hasher.
type Account struct {
	Name         string
	PasswordHash []byte
	Salt         []byte
}

// Character is a persistent character record, keyed by globally unique name.
type Character struct {
	Name        string
	AccountName string
	LastRoom    string
}

// RoomRecord is a persistent room definition. Connections map exit
// directions to destination room titles; the adjacency is directed.
type RoomRecord struct {
	Title       string
	Description string
	Connections map[string]string
	Items       []string
}

func encodeAccount(acct *Account) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(acct); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeAccount(data []byte) (*Account, error) {
	var acct Account
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func encodeCharacter(ch *Character) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCharacter(data []byte) (*Character, error) {
	var ch Character
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func encodeRoom(room *RoomRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(room); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRoom(data []byte) (*RoomRecord, error) {
	var room RoomRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&room); err != nil {
		return nil, err
	}
	return &room, nil
}
