package ftp

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
	}{
		{"new file", Record{FileName: "test.c", Status: StatusNew, Err: ErrNone}},
		{"append", Record{FileName: "report.pdf", Status: StatusAppend, Err: ErrNone}},
		{"error reply", Record{FileName: "missing.txt", Status: StatusNew, Err: ErrFileNotFound}},
		{"empty name", Record{FileName: "", Status: StatusNew, Err: ErrNone}},
		{"max length name", Record{FileName: string(make([]byte, FileNameSize)), Status: StatusNew, Err: ErrNone}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(&tc.rec)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != HeaderSize {
				t.Fatalf("expected %d bytes, got %d", HeaderSize, len(encoded))
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Status != tc.rec.Status || decoded.Err != tc.rec.Err {
				t.Errorf("header mismatch: got %+v, want %+v", decoded, tc.rec)
			}
		})
	}
}

func TestEncodeNameTooLong(t *testing.T) {
	rec := Record{FileName: string(make([]byte, FileNameSize+1))}
	if _, err := Encode(&rec); err == nil {
		t.Fatal("expected error for oversized file name")
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderSize-1)); err == nil {
		t.Fatal("expected error for short record")
	}
}

func TestDecodeNameTerminatesAtNUL(t *testing.T) {
	rec := Record{FileName: "short.txt", Status: StatusNew, Err: ErrNone}
	encoded, err := Encode(&rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.FileName != "short.txt" {
		t.Errorf("got filename %q, want %q", decoded.FileName, "short.txt")
	}
}
