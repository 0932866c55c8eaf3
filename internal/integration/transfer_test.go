// Package integration exercises the sender and receiver together over
// real loopback UDP sockets, the way the two halves of the reference
// client/server pair are actually used.
package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"dpftp/internal/receiver"
	"dpftp/internal/sender"
)

// startServer binds an ephemeral-port receiver and runs it with destDir as
// its current working directory, so every file it writes lands there.
func startServer(t *testing.T, destDir string) int {
	t.Helper()

	srv, err := receiver.Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		wg.Wait()
	})

	_, portStr, err := net.SplitHostPort(srv.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(destDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldwd) })

	return port
}

func TestTransferSmallFile(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "source.txt")
	want := []byte("hello from the sender")
	if err := os.WriteFile(src, want, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	port := startServer(t, destDir)

	if err := sender.Send("127.0.0.1", port, src); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitForFile(t, filepath.Join(destDir, "source.txt"), want)
}

func TestTransferExactlyOneChunk(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "exact.bin")
	want := make([]byte, 500)
	for i := range want {
		want[i] = byte(i)
	}
	if err := os.WriteFile(src, want, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	port := startServer(t, destDir)

	if err := sender.Send("127.0.0.1", port, src); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitForFile(t, filepath.Join(destDir, "exact.bin"), want)
}

func TestTransferFragmentsAcrossChunks(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "big.bin")
	want := make([]byte, 1800)
	for i := range want {
		want[i] = byte(i % 256)
	}
	if err := os.WriteFile(src, want, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	port := startServer(t, destDir)

	if err := sender.Send("127.0.0.1", port, src); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitForFile(t, filepath.Join(destDir, "big.bin"), want)
}

func TestTransferEmptyFile(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "empty.txt")
	if err := os.WriteFile(src, nil, 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	port := startServer(t, destDir)

	if err := sender.Send("127.0.0.1", port, src); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitForFile(t, filepath.Join(destDir, "empty.txt"), nil)
}

func TestTransferTwoConcurrentClients(t *testing.T) {
	srcDir, destDir := t.TempDir(), t.TempDir()
	srcA := filepath.Join(srcDir, "a.txt")
	srcB := filepath.Join(srcDir, "b.txt")
	wantA := []byte("data from client A, repeated enough to span more than one five hundred byte chunk. ")
	wantB := []byte("data from client B, a different payload entirely, also long enough to matter here. ")
	for len(wantA) < 1200 {
		wantA = append(wantA, wantA...)
	}
	for len(wantB) < 1200 {
		wantB = append(wantB, wantB...)
	}
	if err := os.WriteFile(srcA, wantA, 0644); err != nil {
		t.Fatalf("write source A: %v", err)
	}
	if err := os.WriteFile(srcB, wantB, 0644); err != nil {
		t.Fatalf("write source B: %v", err)
	}

	port := startServer(t, destDir)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- sender.Send("127.0.0.1", port, srcA)
	}()
	go func() {
		defer wg.Done()
		errs <- sender.Send("127.0.0.1", port, srcB)
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	waitForFile(t, filepath.Join(destDir, "a.txt"), wantA)
	waitForFile(t, filepath.Join(destDir, "b.txt"), wantB)
}

func waitForFile(t *testing.T, path string, want []byte) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	var got []byte
	var err error
	for time.Now().Before(deadline) {
		got, err = os.ReadFile(path)
		if err == nil && len(got) == len(want) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	if string(got) != string(want) {
		t.Fatalf("wrote %d bytes, want %d bytes matching the source", len(got), len(want))
	}
}
