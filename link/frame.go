// Package link frames anti-theft payloads for the radio. The payload bytes
// are opaque here; the message-type tag travels in the frame header.
package link

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/ystepanoff/antitheft/protocol"
)

// Frame layout:
//
//	Length(1) | Source(2) | Type(1) | Seq(2) | Payload(0-N) | CRC32(4) | Terminal(1)
//
// Length counts everything AFTER the length byte. Multi-byte fields are
// big-endian; the CRC covers the payload only.
const (
	LengthFieldSize = 1
	SourceFieldSize = 2
	TypeFieldSize   = 1
	SeqFieldSize    = 2
	CRCSize         = 4
	TerminalSize    = 1

	HeaderSize = LengthFieldSize + SourceFieldSize + TypeFieldSize + SeqFieldSize // 6 bytes

	// Total maximum frame length on air (including length, CRC, terminal)
	MaxFrameSize = 64

	MaxPayloadSize = MaxFrameSize - HeaderSize - CRCSize - TerminalSize

	// Terminal byte value appended to the end of every frame
	Terminal = 0x55

	headerWithoutLen = HeaderSize - LengthFieldSize
	minFrameSize     = HeaderSize + CRCSize + TerminalSize
)

type Frame struct {
	Length  byte
	Source  protocol.NodeID
	Type    uint8
	Seq     uint16
	Payload []byte
	CRC     uint32 // decoded frames only; ignored by encoder
}

// EncodeFrame serialises f. Payloads over MaxPayloadSize are rejected rather
// than truncated, since a cut anti-theft record would no longer decode.
func EncodeFrame(f *Frame) ([]byte, error) {
	if f == nil {
		return nil, ErrNilFrame
	}
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}

	payloadLen := len(f.Payload)
	bodyLen := headerWithoutLen + payloadLen + CRCSize + TerminalSize
	totalLen := LengthFieldSize + bodyLen

	data := make([]byte, totalLen)
	data[0] = byte(bodyLen)
	binary.BigEndian.PutUint16(data[1:3], uint16(f.Source))
	data[3] = f.Type
	binary.BigEndian.PutUint16(data[4:6], f.Seq)
	copy(data[HeaderSize:], f.Payload)

	var crc uint32
	if payloadLen > 0 {
		crc = crc32.ChecksumIEEE(f.Payload)
	}
	crcPos := HeaderSize + payloadLen
	binary.BigEndian.PutUint32(data[crcPos:crcPos+CRCSize], crc)

	data[totalLen-1] = Terminal
	f.Length = byte(bodyLen)

	return data, nil
}

// DecodeFrame parses one frame from the start of data. Bytes after the frame
// (as given by its length field) are ignored.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < minFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}

	bodyLen := int(data[0])
	end := LengthFieldSize + bodyLen
	if bodyLen < minFrameSize-LengthFieldSize || end > len(data) || end > MaxFrameSize {
		return nil, fmt.Errorf("%w: length byte %d, have %d bytes", ErrBadLength, bodyLen, len(data))
	}

	if data[end-1] != Terminal {
		return nil, ErrBadTerminal
	}

	payloadLen := bodyLen - headerWithoutLen - CRCSize - TerminalSize
	crcOffset := HeaderSize + payloadLen

	recvCRC := binary.BigEndian.Uint32(data[crcOffset : crcOffset+CRCSize])
	var calcCRC uint32
	if payloadLen > 0 {
		calcCRC = crc32.ChecksumIEEE(data[HeaderSize:crcOffset])
	}
	if recvCRC != calcCRC {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrBadChecksum, recvCRC, calcCRC)
	}

	f := &Frame{
		Length:  byte(bodyLen),
		Source:  protocol.NodeID(binary.BigEndian.Uint16(data[1:3])),
		Type:    data[3],
		Seq:     binary.BigEndian.Uint16(data[4:6]),
		Payload: make([]byte, payloadLen),
		CRC:     recvCRC,
	}
	copy(f.Payload, data[HeaderSize:crcOffset])

	return f, nil
}

// Message decodes the frame payload with the anti-theft tag dispatcher.
func (f *Frame) Message() (protocol.Message, error) {
	return protocol.Decode(f.Type, f.Payload)
}
