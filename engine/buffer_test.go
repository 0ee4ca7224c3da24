package engine

import (
	"bytes"
	"io"
	"sync"
	"testing"
)

func TestBufferPool_StagingCopy(t *testing.T) {
	bp := NewBufferPool(0)

	buf := bp.Get()
	if buf == nil {
		t.Fatal("Expected a buffer from the pool")
	}
	if len(*buf) != DefaultBufferSize {
		t.Fatalf("Expected default size %d, got %d", DefaultBufferSize, len(*buf))
	}

	// Stage bytes through the buffer the way a download does.
	payload := bytes.Repeat([]byte("chocolate"), 1024)
	var staged bytes.Buffer
	if _, err := io.CopyBuffer(&staged, bytes.NewReader(payload), *buf); err != nil {
		t.Fatalf("CopyBuffer failed: %v", err)
	}
	bp.Put(buf)

	if !bytes.Equal(staged.Bytes(), payload) {
		t.Error("Staged bytes do not match the payload")
	}
}

func TestBufferPool_SizeSurvivesReuse(t *testing.T) {
	const size = 4096
	bp := NewBufferPool(size)

	first := bp.Get()
	if len(*first) != size {
		t.Fatalf("Expected size %d, got %d", size, len(*first))
	}
	bp.Put(first)

	second := bp.Get()
	if len(*second) != size {
		t.Errorf("Expected reused buffer of size %d, got %d", size, len(*second))
	}
	bp.Put(second)
}

func TestBufferPool_ConcurrentWorkers(t *testing.T) {
	bp := NewBufferPool(256)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				buf := bp.Get()
				if len(*buf) != 256 {
					t.Errorf("Expected size 256, got %d", len(*buf))
				}
				(*buf)[0] = byte(j)
				bp.Put(buf)
			}
		}()
	}
	wg.Wait()
}
