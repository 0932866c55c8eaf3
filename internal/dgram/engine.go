package dgram

import "dpftp/internal/protocol"

// Action tells a datagram-level caller what happened to an inbound PDU
// once ProcessInbound has built the appropriate reply.
type Action int

const (
	// ActionDeliver means the ack is a normal SND/ACK or fragment ack;
	// the payload (if any) should be delivered to the application.
	ActionDeliver Action = iota
	// ActionClose means the ack is a CLOSEACK; the caller should treat
	// the connection as closed once it has been sent.
	ActionClose
	// ActionError means the ack is an ERROR PDU; no payload is
	// delivered.
	ActionError
)

// ProcessInbound is the receive-side half of the protocol engine
// (spec: recv_datagram). It is a pure function of a peer's running
// sequence counter and the bytes just read off the wire, so both a
// point-to-point Conn and a shared-socket multi-peer dispatcher can
// drive it — the sequence counter is the only state it touches.
//
// buf[:bytesIn] is what the read syscall actually returned; capSize is
// the capacity of the buffer the caller offered it into.
func ProcessInbound(seq *int32, buf []byte, bytesIn int, capSize int) (protocol.PDU, Action, error) {
	if capSize > protocol.MaxDatagramSize {
		*seq++
		return ackFor(*seq, protocol.ERROR, ErrBuffOversized), ActionError, codeErr(ErrBuffOversized)
	}

	var errCode Code = NoError
	var pdu *protocol.PDU

	switch {
	case bytesIn < protocol.HeaderSize:
		errCode = ErrBadDatagram
	default:
		decoded, _, decErr := protocol.Decode(buf[:bytesIn])
		if decErr != nil {
			errCode = ErrBadDatagram
		} else if int(decoded.DgramSz) > capSize {
			errCode = ErrBuffUndersized
		} else {
			pdu = decoded
		}
	}

	if errCode == NoError {
		advanceSeq(seq, pdu.DgramSz)
	} else {
		*seq++
	}

	if errCode != NoError {
		return ackFor(*seq, protocol.ERROR, errCode), ActionError, codeErr(errCode)
	}

	if pdu.MType.HasFragment() {
		return ackFor(*seq, protocol.SENDFRAGMENTACK, NoError), ActionDeliver, nil
	}

	switch pdu.MType {
	case protocol.SND:
		return ackFor(*seq, protocol.SNDACK, NoError), ActionDeliver, nil
	case protocol.CLOSE:
		return ackFor(*seq, protocol.CLOSEACK, NoError), ActionClose, nil
	default:
		return ackFor(*seq, protocol.ERROR, ErrProtocol), ActionError, codeErr(ErrProtocol)
	}
}

func advanceSeq(seq *int32, dgramSz int32) {
	if dgramSz == 0 {
		*seq++
	} else {
		*seq += dgramSz
	}
}

func ackFor(seq int32, mtype protocol.MsgType, code Code) protocol.PDU {
	return protocol.PDU{
		ProtoVer: protocol.ProtoVersion,
		MType:    mtype,
		SeqNum:   seq,
		DgramSz:  0,
		ErrNum:   int32(code),
	}
}
