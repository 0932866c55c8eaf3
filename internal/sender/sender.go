// Package sender implements the client side: open a local file, frame
// it into ftp.Record-prefixed chunks, and drive them through a
// dgram.Conn's connect/send/close lifecycle.
//
// Grounded on FTPClient::start: read the file in fixed-size chunks,
// prepend an ftp.Record header to each one (status NEW on the very
// first chunk, APPEND afterwards), and advance through the file by
// however many payload bytes the engine actually accepted — a
// SendDatagram call may truncate, in which case the next iteration
// resends the remainder.
package sender

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"dpftp/internal/dgram"
	"dpftp/internal/ftp"
	"dpftp/internal/util"
)

// chunkSize is the amount of file data read per record, matching the
// reference client's 500-byte read size.
const chunkSize = 500

// Send connects to addr:port over UDP and transmits filePath in full,
// closing the connection once the file has been sent.
func Send(addr string, port int, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("sender: cannot open %q: %w", filePath, err)
	}
	defer f.Close()

	nc, err := net.Dial("udp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return fmt.Errorf("sender: dial %s:%d: %w", addr, port, err)
	}
	defer nc.Close()

	conn := dgram.NewConn(nc)
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("sender: connect: %w", err)
	}
	util.LogSuccess("sender: connected to %s:%d", addr, port)

	status := ftp.StatusNew
	name := filepath.Base(filePath)

	sendChunk := func(remaining []byte) error {
		for first := true; first || len(remaining) > 0; first = false {
			rec := ftp.Record{FileName: name, Status: status, Err: ftp.ErrNone}
			header, herr := ftp.Encode(&rec)
			if herr != nil {
				return fmt.Errorf("sender: encode record: %w", herr)
			}

			frame := append(header, remaining...)
			sent, serr := conn.SendDatagram(frame, len(frame))
			if serr != nil {
				return fmt.Errorf("sender: send: %w", serr)
			}
			if sent < ftp.HeaderSize {
				return fmt.Errorf("sender: sent fewer bytes than one header, giving up")
			}

			accepted := sent - ftp.HeaderSize
			remaining = remaining[accepted:]
			status = ftp.StatusAppend
			util.Stats.AddSent(sent)
		}
		return nil
	}

	readBuf := make([]byte, chunkSize)
	for {
		n, rerr := f.Read(readBuf)
		if n == 0 {
			if rerr == io.EOF {
				if status == ftp.StatusNew {
					// Empty file: still send one header-only record so the
					// receiver creates the (empty) destination file.
					if serr := sendChunk(nil); serr != nil {
						return serr
					}
				}
				break
			}
			if rerr != nil {
				return fmt.Errorf("sender: read %q: %w", filePath, rerr)
			}
			continue
		}

		if serr := sendChunk(readBuf[:n]); serr != nil {
			return serr
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("sender: read %q: %w", filePath, rerr)
		}
	}

	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("sender: disconnect: %w", err)
	}
	util.LogSuccess("sender: %q sent, connection closed", filePath)
	return nil
}
