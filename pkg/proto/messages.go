package proto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Server→client message types carried as decrypted payloads. Client→server
// payloads are raw UTF-8 command lines and need no envelope of their own.
const (
	MsgSecurity = "security"
	MsgOutput   = "output"
	MsgSalt     = "salt"
)

// Handshake is the one frame exempt from SecureChannel validation: the server
// sends it in the clear immediately after accept, since the client has no key
// yet. packet_id is the counter both directions start from.
type Handshake struct {
	Type          string `json:"type"`
	SessionID     uint64 `json:"session_id"`
	PacketID      uint64 `json:"packet_id"`
	EncryptionKey string `json:"encryption_key"`
}

// NewHandshake builds a handshake message for a freshly accepted session.
func NewHandshake(sessionID, initialCounter uint64, key []byte) Handshake {
	return Handshake{
		Type:          MsgSecurity,
		SessionID:     sessionID,
		PacketID:      initialCounter,
		EncryptionKey: base64.StdEncoding.EncodeToString(key),
	}
}

// Marshal serializes the handshake for the wire.
func (h Handshake) Marshal() ([]byte, error) {
	return json.Marshal(h)
}

// ParseHandshake decodes a handshake frame and its embedded key.
func ParseHandshake(data []byte) (Handshake, []byte, error) {
	var h Handshake
	if err := json.Unmarshal(data, &h); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if h.Type != MsgSecurity {
		return h, nil, fmt.Errorf("%w: unexpected handshake type %q", ErrProtocol, h.Type)
	}
	key, err := base64.StdEncoding.DecodeString(h.EncryptionKey)
	if err != nil {
		return h, nil, fmt.Errorf("%w: bad key encoding", ErrProtocol)
	}
	if len(key) != KeySize {
		return h, nil, fmt.Errorf("%w: key length %d", ErrProtocol, len(key))
	}
	return h, key, nil
}

// ServerMessage is the decrypted server→client payload: game text or a
// password salt driving the authentication handshake.
type ServerMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Salt string `json:"salt,omitempty"`
}

// OutputMessage wraps game text for delivery.
func OutputMessage(text string) ServerMessage {
	return ServerMessage{Type: MsgOutput, Text: text}
}

// SaltMessage wraps a password salt for the login/register exchange.
func SaltMessage(salt []byte) ServerMessage {
	return ServerMessage{Type: MsgSalt, Salt: base64.StdEncoding.EncodeToString(salt)}
}

// Marshal serializes a server message for encryption.
func (m ServerMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ParseServerMessage decodes a decrypted server→client payload.
func ParseServerMessage(data []byte) (ServerMessage, error) {
	var m ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return m, nil
}
