// Package receiver implements the server side: a shared UDP listening
// socket demultiplexed by peer address into per-peer ingest tasks.
//
// Grounded on FTPServer::listen from the reference implementation, with
// two corrections the redesign calls for: a CONNECT datagram is
// recognized by its message type rather than by guessing from datagram
// size, and a CLOSE no longer falls through into the default error log.
package receiver

import (
	"context"
	"net"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"dpftp/internal/dgram"
	"dpftp/internal/pool"
	"dpftp/internal/protocol"
	"dpftp/internal/util"
)

// Server owns the listening socket, the peer dispatch table, and the
// worker pool that runs one ingest task per connected peer.
type Server struct {
	conn net.PacketConn
	disp *Dispatcher
	pool *pool.Pool

	mu      sync.Mutex
	seqNums map[string]int32
}

// Listen binds addr:port with SO_REUSEADDR set, matching the reference
// server's socket setup.
func Listen(addr string, port int) (*Server, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			cerr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if cerr != nil {
				return cerr
			}
			return sockErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	return &Server{
		conn:    pc,
		disp:    NewDispatcher(),
		pool:    pool.New(),
		seqNums: make(map[string]int32),
	}, nil
}

// Addr returns the socket's bound local address, useful when Listen was
// given port 0 and the caller needs to know what was actually assigned.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve runs the receive loop until ctx is cancelled or the socket
// errors. Each datagram is processed inline on the accepting goroutine;
// only the resulting payload delivery is handed off to the pool, so a
// slow peer's file I/O never blocks datagrams from other peers for
// longer than one channel send.
func (s *Server) Serve(ctx context.Context) error {
	util.LogInfo("receiver: listening on %s", s.conn.LocalAddr())

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, peer, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		util.Stats.AddRecv(n)
		s.handleDatagram(peer, buf[:n])
	}
}

func (s *Server) handleDatagram(peer net.Addr, data []byte) {
	addr := peer.String()

	pdu, payload, derr := protocol.Decode(data)
	if derr == nil && pdu.MType == protocol.CONNECT {
		if len(payload) > 0 {
			util.LogWarning("receiver: %s sent CONNECT carrying a payload, rejecting", addr)
			s.reply(peer, &protocol.PDU{ProtoVer: protocol.ProtoVersion, MType: protocol.ERROR, ErrNum: int32(dgram.ErrProtocol)})
			return
		}
		s.handleConnect(peer, addr)
		return
	}

	ch, known := s.disp.Route(addr)
	if !known {
		util.LogWarning("receiver: datagram from unconnected peer %s, dropping", addr)
		s.reply(peer, &protocol.PDU{ProtoVer: protocol.ProtoVersion, MType: protocol.ERROR, ErrNum: int32(dgram.ErrProtocol)})
		return
	}

	s.mu.Lock()
	seq := s.seqNums[addr]
	ack, action, perr := dgram.ProcessInbound(&seq, data, len(data), protocol.MaxDatagramSize)
	s.seqNums[addr] = seq
	s.mu.Unlock()

	if werr := s.reply(peer, &ack); werr != nil {
		util.LogError("receiver: ack to %s failed: %v", addr, werr)
	}

	switch action {
	case dgram.ActionDeliver:
		if len(payload) > 0 {
			cp := make([]byte, len(payload))
			copy(cp, payload)
			if serr := ch.Send(cp); serr != nil {
				util.LogWarning("receiver: %s inbox closed, dropping %d bytes", addr, len(cp))
			}
		}
	case dgram.ActionClose:
		ch.Close()
		util.Stats.RemovePeer()
		util.LogInfo("receiver: %s closed", addr)
	case dgram.ActionError:
		util.LogWarning("receiver: protocol error from %s: %v", addr, perr)
	}
}

func (s *Server) handleConnect(peer net.Addr, addr string) {
	if _, known := s.disp.Route(addr); known {
		return
	}

	s.mu.Lock()
	s.seqNums[addr] = 1
	seq := s.seqNums[addr]
	s.mu.Unlock()

	ack := protocol.PDU{
		ProtoVer: protocol.ProtoVersion,
		MType:    protocol.CNTACK,
		SeqNum:   seq,
		DgramSz:  0,
		ErrNum:   0,
	}
	if err := s.reply(peer, &ack); err != nil {
		util.LogError("receiver: CNTACK to %s failed: %v", addr, err)
		return
	}

	ch := s.disp.Register(addr)
	util.Stats.AddPeer()

	task := NewIngest(addr, ch, func() { s.disp.Unregister(addr) })
	s.pool.Submit(func(w *pool.Worker) { task.Run() })

	util.LogSuccess("receiver: connection established with %s", addr)
}

func (s *Server) reply(peer net.Addr, pdu *protocol.PDU) error {
	out := protocol.Encode(pdu, nil)
	n, err := s.conn.WriteTo(out, peer)
	if err == nil {
		util.Stats.AddSent(n)
	}
	return err
}

// Close shuts down the listening socket and waits for every in-flight
// ingest task to finish draining.
func (s *Server) Close() error {
	err := s.conn.Close()
	s.pool.Close()
	return err
}
