package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		pdu     PDU
		payload []byte
	}{
		{"CONNECT no payload", PDU{ProtoVer: ProtoVersion, MType: CONNECT, SeqNum: 0}, nil},
		{"SND small payload", PDU{ProtoVer: ProtoVersion, MType: SND, SeqNum: 42, DgramSz: 11}, []byte("hello world")},
		{"CLOSE no payload", PDU{ProtoVer: ProtoVersion, MType: CLOSE, SeqNum: 100}, nil},
		{"SND large payload", PDU{ProtoVer: ProtoVersion, MType: SND, SeqNum: 999, DgramSz: 512}, make([]byte, 512)},
		{"SND empty payload", PDU{ProtoVer: ProtoVersion, MType: SND, SeqNum: 555}, []byte{}},
		{"ERROR", PDU{ProtoVer: ProtoVersion, MType: ERROR, SeqNum: 3, ErrNum: -32}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := Encode(&tc.pdu, tc.payload)

			decoded, payload, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.ProtoVer != tc.pdu.ProtoVer ||
				decoded.MType != tc.pdu.MType ||
				decoded.SeqNum != tc.pdu.SeqNum ||
				decoded.DgramSz != tc.pdu.DgramSz ||
				decoded.ErrNum != tc.pdu.ErrNum {
				t.Errorf("header mismatch: got %+v, want %+v", decoded, tc.pdu)
			}
			if !bytes.Equal(payload, tc.payload) {
				t.Errorf("payload mismatch: got %v, want %v", payload, tc.payload)
			}
		})
	}
}

func TestDecodeTooShort(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"1 byte", []byte{0x01}},
		{"19 bytes", make([]byte, HeaderSize-1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := Decode(tc.data); err == nil {
				t.Fatal("expected error for short datagram, got nil")
			}
		})
	}
}

func TestEncodeExactHeaderSize(t *testing.T) {
	pdu := PDU{ProtoVer: ProtoVersion, MType: CONNECT, SeqNum: 777}
	encoded := Encode(&pdu, nil)
	if len(encoded) != HeaderSize {
		t.Fatalf("expected %d bytes, got %d", HeaderSize, len(encoded))
	}
}

func TestHasFragment(t *testing.T) {
	cases := []struct {
		mtype MsgType
		want  bool
	}{
		{SND, false},
		{SNDACK, false},
		{FRAGMENT, true},
		{SENDFRAGMENT, true},
		{SENDFRAGMENTACK, true},
		{CLOSE, false},
	}
	for _, tc := range cases {
		if got := tc.mtype.HasFragment(); got != tc.want {
			t.Errorf("HasFragment(%d) = %v, want %v", tc.mtype, got, tc.want)
		}
	}
}

func TestMsgString(t *testing.T) {
	cases := []struct {
		mtype MsgType
		want  string
	}{
		{ACK, "ACK"},
		{SND, "SEND"},
		{CONNECT, "CONNECT"},
		{CLOSE, "CLOSE"},
		{NACK, "NACK"},
		{ERROR, "ERROR"},
		{SNDACK, "SEND/ACK"},
		{CNTACK, "CONNECT/ACK"},
		{CLOSEACK, "CLOSE/ACK"},
		{SENDFRAGMENT, "SEND FRAGMENT"},
		{SENDFRAGMENTACK, "SEND FRAGMENT/ACK"},
		{MsgType(123), "***UNKNOWN***"},
	}
	for _, tc := range cases {
		if got := MsgString(tc.mtype); got != tc.want {
			t.Errorf("MsgString(%d) = %q, want %q", tc.mtype, got, tc.want)
		}
	}
}
