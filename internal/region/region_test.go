package region

import "testing"

func TestAllocAdvancesOffset(t *testing.T) {
	r := New(64)
	b, err := r.Alloc(10, 1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if len(b) != 10 {
		t.Fatalf("len = %d, want 10", len(b))
	}
	if r.Used() != 10 {
		t.Fatalf("used = %d, want 10", r.Used())
	}
}

func TestAllocAlignment(t *testing.T) {
	r := New(64)
	if _, err := r.Alloc(3, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	b, err := r.Alloc(8, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	start := r.Used() - len(b)
	if start%8 != 0 {
		t.Fatalf("start %d not 8-aligned", start)
	}
}

func TestAllocExhausted(t *testing.T) {
	r := New(8)
	if _, err := r.Alloc(16, 1); err == nil {
		t.Fatalf("expected exhaustion error")
	}
}

func TestSaveRestoreReturnsExactOffset(t *testing.T) {
	r := New(64)
	if _, err := r.Alloc(10, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	mark := r.Save()
	if _, err := r.Alloc(20, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	r.Restore(mark)
	if r.Save() != mark {
		t.Fatalf("offset after restore = %d, want %d", r.Save(), mark)
	}
}

func TestResetZeroesOffset(t *testing.T) {
	r := New(64)
	if _, err := r.Alloc(10, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	r.Reset()
	if r.Used() != 0 {
		t.Fatalf("used = %d, want 0", r.Used())
	}
}

func TestPushBytesCopiesAndReturnsViewableSlice(t *testing.T) {
	r := New(64)
	src := []byte("hello")
	got, err := r.PushBytes(src)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
	src[0] = 'H'
	if string(got) != "hello" {
		t.Fatalf("region slice aliased source buffer: %q", got)
	}
}
