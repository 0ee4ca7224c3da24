package engine

import (
	"bytes"
	"io"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint([]byte("hello world"))
	b := Fingerprint([]byte("hello world"))
	if a != b {
		t.Errorf("Expected identical fingerprints, got %s and %s", a, b)
	}

	c := Fingerprint([]byte("hello worlds"))
	if a == c {
		t.Error("Expected different content to produce different fingerprints")
	}
}

func TestFingerprint_EmptyInput(t *testing.T) {
	// SHA-256 of the empty string.
	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	if got := Fingerprint(nil); got != emptySHA256 {
		t.Errorf("Expected %s, got %s", emptySHA256, got)
	}
	if got := Fingerprint([]byte{}); got != emptySHA256 {
		t.Errorf("Expected %s, got %s", emptySHA256, got)
	}
}

func TestFingerprintReader(t *testing.T) {
	data := []byte("some file content that will be staged")

	fr := NewFingerprintReader(bytes.NewReader(data))
	var sink bytes.Buffer
	if _, err := io.Copy(&sink, fr); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	if fr.BytesRead() != int64(len(data)) {
		t.Errorf("Expected %d bytes read, got %d", len(data), fr.BytesRead())
	}
	if fr.Fingerprint() != Fingerprint(data) {
		t.Errorf("Streaming fingerprint %s does not match one-shot %s", fr.Fingerprint(), Fingerprint(data))
	}
	if !bytes.Equal(sink.Bytes(), data) {
		t.Error("Reader altered the data")
	}
}
