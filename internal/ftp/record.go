// Package ftp defines the application-level record header that the sender
// prepends to every file payload: a fixed-width file name, a status
// (new file vs. append), and an FTP-level error code.
package ftp

import (
	"encoding/binary"
	"fmt"
)

// FileNameSize is the fixed, zero-padded width of the file name field.
const FileNameSize = 100

// HeaderSize is the encoded size of Record: 100-byte name + version(4) +
// status(4) + err(4).
const HeaderSize = FileNameSize + 4 + 4 + 4

// ProtoVersion is the fixed record version.
const ProtoVersion uint32 = 1

// Status distinguishes a fresh file from a resumed append.
type Status int32

const (
	StatusNew    Status = 0
	StatusAppend Status = 1
)

// Error is the FTP-level error code carried in a Record.
type Error int32

const (
	ErrAccessDenied Error = -2
	ErrFileNotFound Error = -1
	ErrNone         Error = 0
	ErrUnknown      Error = 99
)

// Record is the per-record application header. Payload bytes, if any,
// immediately follow it in the same buffer.
type Record struct {
	FileName string
	Status   Status
	Err      Error
}

// Encode serializes r into the fixed HeaderSize byte layout.
func Encode(r *Record) ([]byte, error) {
	if len(r.FileName) > FileNameSize {
		return nil, fmt.Errorf("ftp: file name %q exceeds %d bytes", r.FileName, FileNameSize)
	}
	buf := make([]byte, HeaderSize)
	copy(buf[0:FileNameSize], r.FileName)
	binary.BigEndian.PutUint32(buf[FileNameSize:FileNameSize+4], ProtoVersion)
	binary.BigEndian.PutUint32(buf[FileNameSize+4:FileNameSize+8], uint32(r.Status))
	binary.BigEndian.PutUint32(buf[FileNameSize+8:FileNameSize+12], uint32(r.Err))
	return buf, nil
}

// Decode reads a Record from the leading HeaderSize bytes of data.
func Decode(data []byte) (*Record, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("ftp: record too short: %d bytes (need at least %d)", len(data), HeaderSize)
	}
	name := data[0:FileNameSize]
	end := 0
	for end < len(name) && name[end] != 0 {
		end++
	}
	return &Record{
		FileName: string(name[:end]),
		Status:   Status(binary.BigEndian.Uint32(data[FileNameSize+4 : FileNameSize+8])),
		Err:      Error(binary.BigEndian.Uint32(data[FileNameSize+8 : FileNameSize+12])),
	}, nil
}
