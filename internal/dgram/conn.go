// Package dgram implements the datagram protocol engine: per-peer
// connect/send/close state machine, sequence-number accounting, and
// fragmentation of oversized buffers across multiple datagrams.
//
// Grounded on the reference Connection<PDU> class (connect, disconnect,
// sendDgram, send, recvDgram, recv), translated from its blocking
// request/reply style into a Go net.Conn-backed type.
package dgram

import (
	"net"
	"sync"

	"dpftp/internal/protocol"
)

// State is the connection lifecycle: Idle until Connect succeeds, Open
// while datagrams may be exchanged, Closed once either side has torn
// the connection down.
type State int32

const (
	StateIdle State = iota
	StateOpen
	StateClosed
)

// Conn is one end of a point-to-point datagram connection: a connected
// net.Conn plus the running sequence counter and lifecycle state the
// protocol engine needs to validate and ack every datagram.
type Conn struct {
	nc net.Conn

	mu    sync.Mutex
	seq   int32
	state State
}

// NewConn wraps an already-connected net.Conn (as returned by
// net.Dial("udp", addr)) in a protocol engine starting in StateIdle.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, state: StateIdle}
}

// State reports the connection's current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// buildHeader stamps the current sequence number into a PDU for mtype
// carrying dgramSz bytes of payload, then advances the counter by the
// spec's accounting rule: by the payload size if non-zero, else by one.
func (c *Conn) buildHeader(mtype protocol.MsgType, dgramSz int32) protocol.PDU {
	pdu := protocol.PDU{
		ProtoVer: protocol.ProtoVersion,
		MType:    mtype,
		SeqNum:   c.seq,
		DgramSz:  dgramSz,
		ErrNum:   int32(NoError),
	}
	advanceSeq(&c.seq, dgramSz)
	return pdu
}

// readAck blocks for one reply datagram and decodes its header. A
// decode failure or an ERROR reply both close the connection, mirroring
// the reference implementation treating any ack-phase error as fatal to
// the connection.
func (c *Conn) readAck() (protocol.PDU, error) {
	buf := make([]byte, protocol.MaxDatagramSize)
	n, err := c.nc.Read(buf)
	if err != nil {
		c.state = StateClosed
		return protocol.PDU{}, err
	}
	ack, _, derr := protocol.Decode(buf[:n])
	if derr != nil {
		c.state = StateClosed
		return protocol.PDU{}, codeErr(ErrBadDatagram)
	}
	if ack.MType == protocol.ERROR {
		c.state = StateClosed
		return *ack, codeErr(Code(ack.ErrNum))
	}
	return *ack, nil
}

// Connect performs the CONNECT/CNTACK handshake, moving Idle to Open.
func (c *Conn) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return codeErr(ErrProtocol)
	}

	req := c.buildHeader(protocol.CONNECT, 0)
	if _, err := c.nc.Write(protocol.Encode(&req, nil)); err != nil {
		return err
	}

	ack, err := c.readAck()
	if err != nil {
		return err
	}
	if ack.MType != protocol.CNTACK {
		c.state = StateClosed
		return codeErr(ErrProtocol)
	}

	c.state = StateOpen
	return nil
}

// Disconnect performs the CLOSE/CLOSEACK handshake, moving Open to
// Closed. Calling it more than once, or before Connect, is a no-op.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return nil
	}

	req := c.buildHeader(protocol.CLOSE, 0)
	if _, err := c.nc.Write(protocol.Encode(&req, nil)); err != nil {
		c.state = StateClosed
		c.nc.Close()
		return err
	}

	ack, err := c.readAck()
	c.state = StateClosed
	c.nc.Close()
	if err != nil {
		return err
	}
	if ack.MType != protocol.CLOSEACK {
		return codeErr(ErrProtocol)
	}
	return nil
}

// sendOne writes a single datagram of the given message type carrying
// payload, then waits for the matching ack.
func (c *Conn) sendOne(mtype protocol.MsgType, payload []byte) (int, error) {
	if c.state != StateOpen {
		return 0, codeErr(ErrConnClosed)
	}

	pdu := c.buildHeader(mtype, int32(len(payload)))
	if _, err := c.nc.Write(protocol.Encode(&pdu, payload)); err != nil {
		c.state = StateClosed
		return 0, err
	}

	want := protocol.SNDACK
	if mtype.HasFragment() {
		want = protocol.SENDFRAGMENTACK
	}

	ack, err := c.readAck()
	if err != nil {
		return 0, err
	}
	if ack.MType != want {
		c.state = StateClosed
		return 0, codeErr(ErrProtocol)
	}
	return len(payload), nil
}

// SendDatagram sends buf[:n] as exactly one datagram. Per the engine's
// truncation contract, a payload larger than MaxPayloadSize is silently
// truncated rather than rejected — callers that need the whole buffer
// delivered should use Send, which fragments.
func (c *Conn) SendDatagram(buf []byte, n int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mtype := protocol.SND
	if n > protocol.MaxPayloadSize {
		n = protocol.MaxPayloadSize
		mtype = protocol.SENDFRAGMENT
	}
	return c.sendOne(mtype, buf[:n])
}

// Send delivers buf[:n] in full, splitting it across as many datagrams
// as MaxPayloadSize requires. Every chunk but the last carries the
// FRAGMENT bit, so the peer's recv can tell when the buffer is whole.
func (c *Conn) Send(buf []byte, n int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := 0
	for sent < n {
		chunk := n - sent
		if chunk > protocol.MaxPayloadSize {
			chunk = protocol.MaxPayloadSize
		}
		last := sent+chunk >= n

		mtype := protocol.SND
		if !last {
			mtype = protocol.SENDFRAGMENT
		}

		m, err := c.sendOne(mtype, buf[sent:sent+chunk])
		if err != nil {
			return sent, err
		}
		sent += m
	}
	return sent, nil
}

// RecvDatagram blocks for exactly one inbound datagram, validates and
// acks it via ProcessInbound, and copies its payload into buf. capSize
// is the capacity buf was allocated with, used for the oversized/
// undersized buffer checks.
func (c *Conn) RecvDatagram(buf []byte, capSize int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return 0, codeErr(ErrConnClosed)
	}

	raw := make([]byte, protocol.MaxDatagramSize)
	n, err := c.nc.Read(raw)
	if err != nil {
		c.state = StateClosed
		return 0, err
	}

	ack, action, perr := ProcessInbound(&c.seq, raw, n, capSize)
	if werr := c.writeAck(&ack); werr != nil {
		return 0, werr
	}

	switch action {
	case ActionClose:
		c.state = StateClosed
		return 0, codeErr(ErrConnClosed)
	case ActionError:
		return 0, perr
	default:
		_, payload, _ := protocol.Decode(raw[:n])
		copied := copy(buf, payload)
		return copied, nil
	}
}

func (c *Conn) writeAck(ack *protocol.PDU) error {
	_, err := c.nc.Write(protocol.Encode(ack, nil))
	return err
}

// Recv delivers one whole application buffer into buf, transparently
// reassembling however many fragments the sender split it across.
// capSize bounds the total bytes Recv will copy into buf across all
// fragments; a sender that overruns it gets ErrBuffUndersized on the
// fragment that would overflow, same as a single too-big datagram would.
func (c *Conn) Recv(buf []byte, capSize int) (int, error) {
	c.mu.Lock()
	closed := c.state != StateOpen
	c.mu.Unlock()
	if closed {
		return 0, codeErr(ErrConnClosed)
	}

	total := 0
	for {
		raw := make([]byte, protocol.MaxDatagramSize)
		n, err := c.nc.Read(raw)
		if err != nil {
			c.mu.Lock()
			c.state = StateClosed
			c.mu.Unlock()
			return total, err
		}
		if n-protocol.HeaderSize+total > capSize {
			c.mu.Lock()
			c.seq++
			ack := ackFor(c.seq, protocol.ERROR, ErrBuffUndersized)
			werr := c.writeAck(&ack)
			c.mu.Unlock()
			if werr != nil {
				return total, werr
			}
			return total, codeErr(ErrBuffUndersized)
		}

		c.mu.Lock()
		pduPeek, _, _ := protocol.Decode(raw[:min(n, protocol.HeaderSize)])
		ack, action, perr := ProcessInbound(&c.seq, raw, n, protocol.MaxDatagramSize)
		werr := c.writeAck(&ack)
		c.mu.Unlock()

		if werr != nil {
			return total, werr
		}
		if action == ActionError {
			return total, perr
		}

		_, payload, _ := protocol.Decode(raw[:n])
		total += copy(buf[total:], payload)

		if action == ActionClose {
			c.mu.Lock()
			c.state = StateClosed
			c.mu.Unlock()
			return total, codeErr(ErrConnClosed)
		}
		if pduPeek == nil || !pduPeek.MType.HasFragment() {
			return total, nil
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
