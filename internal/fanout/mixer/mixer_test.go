package mixer

import "testing"

type fakeSource struct {
	samples []float32
}

func (f *fakeSource) Read(dst []float32) int {
	n := len(dst)
	if n > len(f.samples) {
		n = len(f.samples)
	}
	copy(dst, f.samples[:n])
	f.samples = f.samples[n:]
	return n
}

func TestAddSourceRejectsDuplicate(t *testing.T) {
	m := New(4)
	if err := m.AddSource(1, &fakeSource{}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := m.AddSource(1, &fakeSource{}); err != ErrDuplicateSource {
		t.Fatalf("expected ErrDuplicateSource, got %v", err)
	}
}

func TestAddSourceRejectsWhenFull(t *testing.T) {
	m := New(1)
	if err := m.AddSource(1, &fakeSource{}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := m.AddSource(2, &fakeSource{}); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestRemoveSourceIsIdempotent(t *testing.T) {
	m := New(4)
	m.RemoveSource(42) // not present, must not panic
	_ = m.AddSource(42, &fakeSource{})
	m.RemoveSource(42)
	m.RemoveSource(42)
	if m.SourceCount() != 0 {
		t.Fatalf("expected 0 sources, got %d", m.SourceCount())
	}
}

func TestMixExcludingSumsOtherSourcesOnly(t *testing.T) {
	m := New(4)
	_ = m.AddSource(1, &fakeSource{samples: []float32{1, 1, 1}})
	_ = m.AddSource(2, &fakeSource{samples: []float32{2, 2, 2}})
	_ = m.AddSource(3, &fakeSource{samples: []float32{4, 4, 4}})

	dst := make([]float32, 3)
	n := m.MixExcluding(dst, 1)
	if n != 3 {
		t.Fatalf("expected 3 samples written, got %d", n)
	}
	// client 1 is excluded, so only sources 2 and 3 contribute: 2+4 = 6.
	for i, v := range dst {
		if v != 6 {
			t.Fatalf("dst[%d] = %v, want 6 (excluded own source)", i, v)
		}
	}
}

func TestMixExcludingIgnoresAbsentID(t *testing.T) {
	m := New(4)
	_ = m.AddSource(1, &fakeSource{samples: []float32{1, 1}})
	_ = m.AddSource(2, &fakeSource{samples: []float32{3, 3}})

	dst := make([]float32, 2)
	n := m.MixExcluding(dst, 999) // excludeID not registered: all sources mix
	if n != 2 {
		t.Fatalf("expected 2 samples written, got %d", n)
	}
	for i, v := range dst {
		if v != 4 {
			t.Fatalf("dst[%d] = %v, want 4", i, v)
		}
	}
}

func TestMixExcludingReportsLargestSourceContribution(t *testing.T) {
	m := New(4)
	_ = m.AddSource(1, &fakeSource{samples: []float32{1}})
	_ = m.AddSource(2, &fakeSource{samples: []float32{1, 1, 1, 1}})

	dst := make([]float32, 4)
	n := m.MixExcluding(dst, 999)
	if n != 4 {
		t.Fatalf("expected max contribution of 4, got %d", n)
	}
	if dst[0] != 2 || dst[1] != 1 || dst[2] != 1 || dst[3] != 1 {
		t.Fatalf("unexpected mix result: %v", dst)
	}
}

func TestSoftClipClampsToUnitRange(t *testing.T) {
	buf := []float32{-2.5, -1.0, 0.0, 1.0, 3.3}
	SoftClip(buf)
	want := []float32{-1.0, -1.0, 0.0, 1.0, 1.0}
	for i, v := range want {
		if buf[i] != v {
			t.Fatalf("buf[%d] = %v, want %v", i, buf[i], v)
		}
	}
}
