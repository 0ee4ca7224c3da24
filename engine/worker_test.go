package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/datasetops/shuttle/provider"
	"github.com/datasetops/shuttle/store"
)

type fakeFileInfo struct {
	id   string
	name string
	size int64
	mod  time.Time
	desc string
}

func (f *fakeFileInfo) ID() string          { return f.id }
func (f *fakeFileInfo) Name() string        { return f.name }
func (f *fakeFileInfo) Size() int64         { return f.size }
func (f *fakeFileInfo) ModTime() time.Time  { return f.mod }
func (f *fakeFileInfo) Description() string { return f.desc }

// fakeSource serves files from memory with optional failure injection.
type fakeSource struct {
	mu        sync.Mutex
	files     []provider.FileInfo
	data      map[string][]byte
	listErr   error
	readFails map[string]int // remaining transient failures per file ID
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		data:      make(map[string][]byte),
		readFails: make(map[string]int),
	}
}

func (s *fakeSource) addFile(id, name string, content []byte, mod time.Time) {
	s.files = append(s.files, &fakeFileInfo{id: id, name: name, size: int64(len(content)), mod: mod})
	s.data[id] = content
}

func (s *fakeSource) ListFolder(ctx context.Context, folderID string) ([]provider.FileInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.files, nil
}

func (s *fakeSource) OpenRead(ctx context.Context, fileID string) (io.ReadCloser, error) {
	s.mu.Lock()
	if n := s.readFails[fileID]; n > 0 {
		s.readFails[fileID] = n - 1
		s.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	content, ok := s.data[fileID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("file not found: %s", fileID)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// fakeDest records puts in memory with optional failure injection.
type fakeDest struct {
	mu       sync.Mutex
	objects  map[string][]byte
	meta     map[string]provider.ObjectMetadata
	puts     int
	putFails int           // remaining transient put failures
	block    chan struct{} // if set, Put waits on it before proceeding
	pingErr  error
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		objects: make(map[string][]byte),
		meta:    make(map[string]provider.ObjectMetadata),
	}
}

func (d *fakeDest) Put(ctx context.Context, key string, r io.Reader, meta provider.ObjectMetadata) error {
	if d.block != nil {
		<-d.block
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.putFails > 0 {
		d.putFails--
		return errors.New("throttled")
	}
	d.puts++
	d.objects[key] = data
	d.meta[key] = meta
	return nil
}

func (d *fakeDest) Ping(ctx context.Context) error {
	return d.pingErr
}

func (d *fakeDest) putCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.puts
}

func newTestWorker(t *testing.T, src provider.Source, dst provider.Destination, idx store.Index) *TransferWorker {
	t.Helper()
	return NewTransferWorker(src, dst, idx, t.TempDir(), testPolicy, nil, nil)
}

func TestTransferWorker_Uploads(t *testing.T) {
	src := newFakeSource()
	mod := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	src.addFile("f1", "truffle.jpg", []byte("truffle bytes"), mod)

	dst := newFakeDest()
	idx := store.NewMemoryIndex()
	worker := newTestWorker(t, src, dst, idx)

	task := FileTask{
		JobID: "job-1",
		Info:  src.files[0],
		Rank:  "dark",
		Meta:  provider.ObjectMetadata{Category: "dark"},
	}

	rec := worker.Process(context.Background(), task)
	if rec.Outcome != OutcomeUploaded {
		t.Fatalf("Expected uploaded, got %s (err: %v)", rec.Outcome, rec.Err)
	}
	if rec.DestKey != "dark/2024-05-20/truffle.jpg" {
		t.Errorf("Unexpected destination key %s", rec.DestKey)
	}
	if rec.Fingerprint != Fingerprint([]byte("truffle bytes")) {
		t.Errorf("Unexpected fingerprint %s", rec.Fingerprint)
	}

	if got := dst.objects[rec.DestKey]; !bytes.Equal(got, []byte("truffle bytes")) {
		t.Errorf("Destination holds wrong bytes: %q", got)
	}
	if dst.meta[rec.DestKey].Category != "dark" {
		t.Errorf("Metadata not attached: %+v", dst.meta[rec.DestKey])
	}

	key, ok, err := idx.Lookup(rec.Fingerprint)
	if err != nil || !ok || key != rec.DestKey {
		t.Errorf("Index entry missing or wrong: ok=%v key=%s err=%v", ok, key, err)
	}
}

func TestTransferWorker_SkipsKnownContent(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "copy.jpg", []byte("same bytes"), time.Now())

	dst := newFakeDest()
	idx := store.NewMemoryIndex()
	if _, _, err := idx.Record(Fingerprint([]byte("same bytes")), "milk/2023-01-01/original.jpg"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	worker := newTestWorker(t, src, dst, idx)
	rec := worker.Process(context.Background(), FileTask{JobID: "job-1", Info: src.files[0], Rank: "milk"})

	if rec.Outcome != OutcomeSkipped {
		t.Fatalf("Expected skipped, got %s", rec.Outcome)
	}
	if rec.DestKey != "milk/2023-01-01/original.jpg" {
		t.Errorf("Expected the original key, got %s", rec.DestKey)
	}
	if dst.putCount() != 0 {
		t.Errorf("Expected no uploads, got %d", dst.putCount())
	}
}

func TestTransferWorker_RetriesTransientDownload(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "flaky.jpg", []byte("eventually fine"), time.Now())
	src.readFails["f1"] = 2 // fail twice, succeed on the third attempt

	dst := newFakeDest()
	worker := newTestWorker(t, src, dst, store.NewMemoryIndex())

	rec := worker.Process(context.Background(), FileTask{JobID: "job-1", Info: src.files[0], Rank: "r"})
	if rec.Outcome != OutcomeUploaded {
		t.Fatalf("Expected uploaded after retries, got %s (err: %v)", rec.Outcome, rec.Err)
	}
}

func TestTransferWorker_DownloadRetriesExhausted(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "gone.jpg", []byte("unreachable"), time.Now())
	src.readFails["f1"] = 10 // more than the attempt ceiling

	dst := newFakeDest()
	worker := newTestWorker(t, src, dst, store.NewMemoryIndex())

	rec := worker.Process(context.Background(), FileTask{JobID: "job-1", Info: src.files[0], Rank: "r"})
	if rec.Outcome != OutcomeFailed {
		t.Fatalf("Expected failed, got %s", rec.Outcome)
	}
	if rec.Err == nil {
		t.Error("Expected the failure cause on the record")
	}
	if dst.putCount() != 0 {
		t.Errorf("Expected no uploads, got %d", dst.putCount())
	}
}

func TestTransferWorker_UploadFailureReleasesReservation(t *testing.T) {
	src := newFakeSource()
	src.addFile("f1", "blocked.jpg", []byte("blocked content"), time.Now())

	dst := newFakeDest()
	dst.putFails = 10 // exhaust upload retries

	idx := store.NewMemoryIndex()
	worker := newTestWorker(t, src, dst, idx)

	rec := worker.Process(context.Background(), FileTask{JobID: "job-1", Info: src.files[0], Rank: "r"})
	if rec.Outcome != OutcomeFailed {
		t.Fatalf("Expected failed, got %s", rec.Outcome)
	}

	// The reservation must be gone so a retry can upload the content.
	_, ok, err := idx.Lookup(Fingerprint([]byte("blocked content")))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if ok {
		t.Error("Expected reservation released after upload failure")
	}

	// A second pass with a healthy destination succeeds.
	dst.putFails = 0
	rec = worker.Process(context.Background(), FileTask{JobID: "job-1", Info: src.files[0], Rank: "r"})
	if rec.Outcome != OutcomeUploaded {
		t.Errorf("Expected uploaded on retry, got %s (err: %v)", rec.Outcome, rec.Err)
	}
}

func TestTransferWorker_ConcurrentIdenticalContent(t *testing.T) {
	src := newFakeSource()
	src.addFile("a1", "one.jpg", []byte("identical payload"), time.Now())
	src.addFile("a2", "two.jpg", []byte("identical payload"), time.Now())

	dst := newFakeDest()
	idx := store.NewMemoryIndex()
	worker := newTestWorker(t, src, dst, idx)

	var wg sync.WaitGroup
	records := make([]FileRecord, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i] = worker.Process(context.Background(), FileTask{
				JobID: "job-race",
				Info:  src.files[i],
				Rank:  "r",
			})
		}(i)
	}
	wg.Wait()

	var uploaded, skipped int
	for _, rec := range records {
		switch rec.Outcome {
		case OutcomeUploaded:
			uploaded++
		case OutcomeSkipped:
			skipped++
		default:
			t.Errorf("Unexpected outcome %s (err: %v)", rec.Outcome, rec.Err)
		}
	}
	if uploaded != 1 || skipped != 1 {
		t.Errorf("Expected exactly one upload and one skip, got %d/%d", uploaded, skipped)
	}
	if dst.putCount() != 1 {
		t.Errorf("Expected exactly 1 put, got %d", dst.putCount())
	}
	if idx.Len() != 1 {
		t.Errorf("Expected exactly 1 index entry, got %d", idx.Len())
	}
}
