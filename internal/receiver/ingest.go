package receiver

import (
	"fmt"
	"os"

	"dpftp/internal/channel"
	"dpftp/internal/ftp"
	"dpftp/internal/util"
)

// Ingest is the per-peer file-writer task: it drains one peer's inbox
// channel, decodes each chunk's ftp.Record header, and appends the
// remaining bytes to the named file — truncating on the first record
// (Status NEW) and appending on every subsequent one (Status APPEND).
//
// Grounded on FTPFileWriter::serverLoop: loop receiving from the
// channel until it reports closed, open/trunc or open/append depending
// on the record header, write the rest of the chunk, repeat.
type Ingest struct {
	addr string
	ch   channel.Channel[[]byte]
	done func()
}

// NewIngest builds an ingest task for addr reading from ch. done is
// called exactly once, when Run returns (after the channel drains and
// closes, or after a failed file open or write ends the task early), so
// the caller can deregister the peer from the dispatcher.
func NewIngest(addr string, ch channel.Channel[[]byte], done func()) *Ingest {
	return &Ingest{addr: addr, ch: ch, done: done}
}

// Run drains the channel until it is closed and empty, writing each
// chunk to disk as it arrives; a failed file open or write stops it
// before the channel is drained. It is meant to be submitted to the
// worker pool, not called directly from the dispatch loop.
//
// Each chunk opens the target file anew (truncating on NEW, appending
// otherwise) rather than holding one handle open across the whole
// transfer — the reference serverLoop does the same, reopening an
// ofstream every iteration.
func (ig *Ingest) Run() {
	defer ig.done()

	for {
		chunk, err := ig.ch.Receive()
		if err != nil {
			return
		}

		rec, derr := ftp.Decode(chunk)
		if derr != nil {
			util.LogError("receiver: %s sent a malformed record: %v", ig.addr, derr)
			continue
		}

		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if rec.Status == ftp.StatusAppend {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}

		f, oerr := os.OpenFile(rec.FileName, flags, 0644)
		if oerr != nil {
			util.LogError("receiver: cannot open %q for %s: %v", rec.FileName, ig.addr, oerr)
			return
		}

		payload := chunk[ftp.HeaderSize:]
		if len(payload) > 0 {
			if _, werr := f.Write(payload); werr != nil {
				f.Close()
				util.LogError("receiver: write to %q failed: %v", rec.FileName, werr)
				return
			}
		}
		f.Close()
		util.LogDebug("receiver: %s -> %q (%d bytes)", ig.addr, rec.FileName, len(payload))
	}
}

// String satisfies fmt.Stringer for log-friendly identification.
func (ig *Ingest) String() string {
	return fmt.Sprintf("ingest[%s]", ig.addr)
}
