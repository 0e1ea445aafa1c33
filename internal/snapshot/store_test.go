package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/policysimplify/internal/embedding"
	"github.com/hyperjump/policysimplify/internal/models"
	"github.com/hyperjump/policysimplify/internal/vector"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := NewStore(dir, "memory", embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testDocs() []*models.Document {
	return []*models.Document{
		{Text: "The policy covers late filing fines.", Metadata: map[string]interface{}{"source": "a.pdf", "tenant": "default"}},
		{Text: "Office hours are 9-5.", Metadata: map[string]interface{}{"source": "a.pdf", "tenant": "default"}},
		{Text: "Contact the registrar for forms.", Metadata: map[string]interface{}{"source": "b.pdf"}},
	}
}

func filledIndex(t *testing.T, s *Store) *vector.Index {
	t.Helper()
	idx, err := s.NewIndex()
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(context.Background(), testDocs()); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	idx := filledIndex(t, s)

	if err := s.Save(idx, "policies"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"policies.json", "policies.npy"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	loaded, err := s.Open("policies")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 3 || loaded.Dimensions() != 16 {
		t.Fatalf("loaded Len=%d Dimensions=%d", loaded.Len(), loaded.Dimensions())
	}
	want := testDocs()
	for i, d := range loaded.Documents() {
		if d.Text != want[i].Text || d.Source() != want[i].Source() {
			t.Errorf("documents[%d] = %+v, want %+v", i, d, want[i])
		}
	}

	ctx := context.Background()
	for _, q := range []string{"late filing penalties", "office hours", "registrar"} {
		before, err := idx.Search(ctx, q, 3)
		if err != nil {
			t.Fatal(err)
		}
		after, err := loaded.Search(ctx, q, 3)
		if err != nil {
			t.Fatal(err)
		}
		for i := range before {
			if before[i].Document.Text != after[i].Document.Text {
				t.Errorf("%q rank %d: %q vs %q", q, i, before[i].Document.Text, after[i].Document.Text)
			}
			if d := before[i].Score - after[i].Score; d > 1e-6 || d < -1e-6 {
				t.Errorf("%q rank %d score drift %g", q, i, d)
			}
		}
	}
}

func TestStore_SaveEmptyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	idx, _ := s.NewIndex()
	if err := s.Save(idx, "empty"); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("empty save wrote %d files", len(entries))
	}
	loaded, err := s.Open("empty")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 0 {
		t.Errorf("Len=%d, want 0", loaded.Len())
	}
}

func TestStore_OpenMissingIsEmpty(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "not-created-yet"))
	idx, err := s.Open("nothing")
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len=%d, want 0", idx.Len())
	}
	hits, err := idx.Search(context.Background(), "x", 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("hits=%v err=%v", hits, err)
	}
}

func TestStore_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, dir string)
	}{
		{"missing documents", func(t *testing.T, dir string) {
			os.Remove(filepath.Join(dir, "p.json"))
		}},
		{"missing vectors", func(t *testing.T, dir string) {
			os.Remove(filepath.Join(dir, "p.npy"))
		}},
		{"bad json", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, "p.json"), []byte("{not json"), 0644)
		}},
		{"bad npy", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, "p.npy"), []byte("garbage"), 0644)
		}},
		{"overflowing shape", func(t *testing.T, dir string) {
			writeRawNPY(t, filepath.Join(dir, "p.npy"), "(2305843009213693952, 3)", 0)
		}},
		{"shape larger than file", func(t *testing.T, dir string) {
			writeRawNPY(t, filepath.Join(dir, "p.npy"), "(1000000000, 1000)", 3*16)
		}},
		{"zero width", func(t *testing.T, dir string) {
			writeRawNPY(t, filepath.Join(dir, "p.npy"), "(3, 0)", 0)
		}},
		{"misaligned", func(t *testing.T, dir string) {
			os.WriteFile(filepath.Join(dir, "p.json"), []byte(`[{"text":"only one","metadata":{}}]`), 0644)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := newTestStore(t, dir)
			if err := s.Save(filledIndex(t, s), "p"); err != nil {
				t.Fatal(err)
			}
			tt.corrupt(t, dir)

			if _, err := s.Open("p"); !errors.Is(err, ErrCorruptSnapshot) {
				t.Fatalf("Open err = %v, want ErrCorruptSnapshot", err)
			}
			idx := s.Load("p")
			if idx == nil || idx.Len() != 0 {
				t.Fatalf("Load should fall back to an empty index")
			}
			if err := idx.Add(context.Background(), testDocs()[:1]); err != nil {
				t.Errorf("fallback index not usable: %v", err)
			}
		})
	}
}

// writeRawNPY writes a v1.0 float32 header declaring shape, followed by n zero floats.
func writeRawNPY(t *testing.T, path, shape string, n int) {
	t.Helper()
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': %s, }\n", shape)
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	buf.WriteByte(byte(len(header)))
	buf.WriteByte(byte(len(header) >> 8))
	buf.WriteString(header)
	buf.Write(make([]byte, 4*n))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestStore_BackendAsymmetry(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	if err := s.Save(filledIndex(t, s), "p"); err != nil {
		t.Fatal(err)
	}
	if !vector.IsFAISSAvailable() {
		t.Skip("FAISS not available (build with -tags=faiss)")
	}
	exact, err := NewStore(dir, "faiss", embedding.NewMockEmbedder(16))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exact.Open("p"); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Open err = %v, want ErrCorruptSnapshot", err)
	}
	if idx := exact.Load("p"); idx.Len() != 0 {
		t.Errorf("Load Len=%d, want 0", idx.Len())
	}
}

func TestStore_InvalidName(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	idx := filledIndex(t, s)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		if err := s.Save(idx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidName", name, err)
		}
		if _, err := s.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestStore_SaveOverwritesAndAppends(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	idx := filledIndex(t, s)
	ctx := context.Background()
	if err := s.Save(idx, "p"); err != nil {
		t.Fatal(err)
	}
	_ = idx.Add(ctx, []*models.Document{{Text: "Annual returns are due by March 31."}})
	if err := s.Save(idx, "p"); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.Open("p")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 4 {
		t.Errorf("Len=%d, want 4", loaded.Len())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected 2 artifacts, found %d (temp files left behind?)", len(entries))
	}
}

func TestStore_Remove(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	_ = s.Save(filledIndex(t, s), "p")
	if err := s.Remove("p"); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d artifacts left after Remove", len(entries))
	}
}
