package protocol

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes a PDU header into a fixed HeaderSize byte slice,
// optionally followed by payload, ready to hand to the socket.
func Encode(pdu *PDU, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.NativeEndian.PutUint32(buf[0:4], uint32(pdu.ProtoVer))
	binary.NativeEndian.PutUint32(buf[4:8], uint32(pdu.MType))
	binary.NativeEndian.PutUint32(buf[8:12], uint32(pdu.SeqNum))
	binary.NativeEndian.PutUint32(buf[12:16], uint32(pdu.DgramSz))
	binary.NativeEndian.PutUint32(buf[16:20], uint32(pdu.ErrNum))
	if len(payload) > 0 {
		copy(buf[HeaderSize:], payload)
	}
	return buf
}

// Decode reads a PDU header from the leading HeaderSize bytes of data.
// The returned payload slice aliases data — callers that need to retain
// it beyond the lifetime of the receive buffer must copy it.
func Decode(data []byte) (*PDU, []byte, error) {
	if len(data) < HeaderSize {
		return nil, nil, fmt.Errorf("protocol: datagram too short: %d bytes (need at least %d)", len(data), HeaderSize)
	}
	pdu := &PDU{
		ProtoVer: int32(binary.NativeEndian.Uint32(data[0:4])),
		MType:    MsgType(binary.NativeEndian.Uint32(data[4:8])),
		SeqNum:   int32(binary.NativeEndian.Uint32(data[8:12])),
		DgramSz:  int32(binary.NativeEndian.Uint32(data[12:16])),
		ErrNum:   int32(binary.NativeEndian.Uint32(data[16:20])),
	}
	return pdu, data[HeaderSize:], nil
}
