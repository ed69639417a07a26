package cache

import (
	"bytes"
	"fmt"
	"testing"
)

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory(1024)

	if err := m.Put("a", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, ok := m.Get("a")
	if !ok || string(data) != "hello" {
		t.Errorf("Get = (%q, %v)", data, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get on missing key succeeded")
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	// Capacity for three 10-byte chunks.
	m := NewMemory(30)
	for i := 0; i < 3; i++ {
		if err := m.Put(fmt.Sprintf("k%d", i), bytes.Repeat([]byte{'x'}, 10)); err != nil {
			t.Fatalf("Put k%d: %v", i, err)
		}
	}

	// Touch k0 so k1 becomes least recently used.
	m.Get("k0")
	if err := m.Put("k3", bytes.Repeat([]byte{'y'}, 10)); err != nil {
		t.Fatalf("Put k3: %v", err)
	}

	if _, ok := m.Get("k1"); ok {
		t.Error("k1 should have been evicted")
	}
	if _, ok := m.Get("k0"); !ok {
		t.Error("k0 was evicted despite recent use")
	}
}

func TestMemoryItemTooLarge(t *testing.T) {
	m := NewMemory(10)
	if err := m.Put("big", bytes.Repeat([]byte{'x'}, 11)); err != ErrItemTooLarge {
		t.Errorf("err = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryUpdateExisting(t *testing.T) {
	m := NewMemory(100)
	m.Put("a", []byte("one"))
	m.Put("a", []byte("two"))

	data, _ := m.Get("a")
	if string(data) != "two" {
		t.Errorf("Get = %q, want updated value", data)
	}
	if s := m.Stats(); s.ItemCount != 1 || s.Size != 3 {
		t.Errorf("stats = %+v, want one 3-byte item", s)
	}
}

func TestMemoryUpdateGrowthEvicts(t *testing.T) {
	m := NewMemory(30)
	m.Put("a", bytes.Repeat([]byte{'a'}, 10))
	m.Put("b", bytes.Repeat([]byte{'b'}, 10))

	// Growing a to 25 bytes exceeds capacity; the older entry goes.
	if err := m.Put("a", bytes.Repeat([]byte{'A'}, 25)); err != nil {
		t.Fatalf("Put grown a: %v", err)
	}

	if s := m.Stats(); s.Size > 30 {
		t.Errorf("size = %d, want <= capacity 30", s.Size)
	}
	if _, ok := m.Get("b"); ok {
		t.Error("b survived eviction after a grew past capacity")
	}
	data, ok := m.Get("a")
	if !ok || len(data) != 25 {
		t.Errorf("Get a = (%d bytes, %v), want 25 bytes", len(data), ok)
	}
}

func TestDiskRoundTrip(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 1024*1024, 3)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	defer d.Close()

	payload := bytes.Repeat([]byte("timing chunk data "), 50)
	if err := d.Put("res-1", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, ok := d.Get("res-1")
	if !ok {
		t.Fatal("Get missed a just-written chunk")
	}
	if !bytes.Equal(data, payload) {
		t.Error("round-tripped chunk differs")
	}
}

func TestDiskUncompressed(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 1024*1024, 0)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	defer d.Close()

	if err := d.Put("k", []byte("plain")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, ok := d.Get("k")
	if !ok || string(data) != "plain" {
		t.Errorf("Get = (%q, %v)", data, ok)
	}
}

func TestDiskSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	d, err := NewDisk(dir, 1024*1024, 3)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if err := d.Put("persist", []byte("still here")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	d.Close()

	d2, err := NewDisk(dir, 1024*1024, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	data, ok := d2.Get("persist")
	if !ok || string(data) != "still here" {
		t.Errorf("after reopen Get = (%q, %v)", data, ok)
	}
}

func TestStoreTiers(t *testing.T) {
	s, err := NewStore(Config{
		MemoryCapacity:   1024,
		DiskCapacity:     1024 * 1024,
		DiskPath:         t.TempDir(),
		CompressionLevel: 1,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if err := s.Put("a", []byte("chunk")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, ok := s.Get("a")
	if !ok || string(data) != "chunk" {
		t.Errorf("Get = (%q, %v)", data, ok)
	}
}

func TestStoreDiskPromotion(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(Config{MemoryCapacity: 1024, DiskCapacity: 1024 * 1024, DiskPath: dir})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Put("a", []byte("chunk"))
	s.Close()

	// A fresh store has a cold memory tier; the disk tier serves the hit
	// and promotes it.
	s2, err := NewStore(Config{MemoryCapacity: 1024, DiskCapacity: 1024 * 1024, DiskPath: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	if _, ok := s2.Get("a"); !ok {
		t.Fatal("disk tier missed")
	}
	if _, ok := s2.memory.Get("a"); !ok {
		t.Error("hit was not promoted into memory")
	}
}

func TestStoreMemoryOnly(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 1024})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	s.Put("a", []byte("x"))
	if _, ok := s.Get("a"); !ok {
		t.Error("memory-only store missed")
	}
}
