// Package proto implements the wire protocol: length-prefixed framing and the
// encrypted, sequence-numbered packet envelope carried inside each frame.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLen is the largest payload a frame can carry; the 2-byte length
// prefix bounds it. A length of 0 is a valid empty frame.
const MaxFrameLen = 65535

var (
	// ErrConnectionClosed is returned when the peer closes the connection
	// cleanly at a frame boundary (zero bytes read at frame start).
	ErrConnectionClosed = errors.New("proto: connection closed")

	// ErrPartialFrame is returned when the connection closes mid-frame,
	// after the length prefix promised more bytes than arrived. A short
	// read is a protocol violation, never a shorter message.
	ErrPartialFrame = errors.New("proto: partial frame")

	// ErrFrameTooLarge is returned by WriteFrame for payloads over MaxFrameLen.
	ErrFrameTooLarge = errors.New("proto: frame exceeds 65535 bytes")
)

// ReadFrame reads one frame from r.
// Wire format: [2 bytes LE: payload length][payload].
// It blocks until the prefix and exactly that many payload bytes are read.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, ErrConnectionClosed
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated length prefix", ErrPartialFrame)
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	payloadLen := int(binary.LittleEndian.Uint16(header[:]))
	if payloadLen == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: wanted %d payload bytes", ErrPartialFrame, payloadLen)
		}
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes one frame to w.
// Header and payload go out in a single Write call to avoid Nagle-induced
// delays from splitting a tiny header + payload.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	frame := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(frame[0:2], uint16(len(data)))
	copy(frame[2:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
