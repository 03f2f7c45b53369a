package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadFrame reads one IWANGO frame from r.
// Wire format: [2 bytes LE: payload length][payload].
// Returns the payload bytes (without the 2-byte length header).
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	payloadLen := int(binary.LittleEndian.Uint16(header[:]))
	if payloadLen == 0 {
		return nil, fmt.Errorf("invalid frame length: 0")
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes one IWANGO frame to w.
// Wire format: [2 bytes LE: len(data)][data].
func WriteFrame(w io.Writer, data []byte) error {
	var header [2]byte
	binary.LittleEndian.PutUint16(header[:], uint16(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// Reply builds an outbound packet: [opcode 2 LE][payload]. Both gate
// and lobby replies use this layout.
func Reply(opcode uint16, payload []byte) []byte {
	buf := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], opcode)
	copy(buf[2:], payload)
	return buf
}

// LobbyRequest is a parsed lobby-side client frame.
type LobbyRequest struct {
	Seq     uint16
	Opcode  uint16
	Payload []byte
}

// ParseLobbyRequest decodes a lobby client frame payload:
// [reserved 2][seq 2 LE][reserved 2][opcode 2 LE][payload].
// Frames shorter than the 8-byte header are malformed and terminate
// the connection.
func ParseLobbyRequest(frame []byte) (LobbyRequest, error) {
	if len(frame) < 8 {
		return LobbyRequest{}, fmt.Errorf("short lobby frame: %d bytes", len(frame))
	}
	return LobbyRequest{
		Seq:     binary.LittleEndian.Uint16(frame[2:4]),
		Opcode:  binary.LittleEndian.Uint16(frame[6:8]),
		Payload: frame[8:],
	}, nil
}
