package indexer

import (
	"strings"
	"testing"

	"github.com/hyperjump/policysimplify/internal/models"
)

func TestChunker_Chunk(t *testing.T) {
	p1 := strings.Repeat("a", 30)
	p2 := strings.Repeat("b", 30)
	p3 := strings.Repeat("c", 10)
	three := p1 + "\n\n" + p2 + "\n\n" + p3

	tests := []struct {
		name                     string
		target, overlap, hardMax int
		text                     string
		want                     []string
	}{
		{"blank", 50, 0, 100, "  \n\t \n", nil},
		{"single short paragraph", 50, 0, 100, "Staff must file returns.", []string{"Staff must file returns."}},
		{"paragraph lines joined", 50, 0, 100, "line one\nline two\n\nnext", []string{"line one line two\nnext"}},
		{"greedy packing", 50, 0, 100, three, []string{p1, p2 + "\n" + p3}},
		{"overlap tail", 50, 20, 100, three, []string{
			p1,
			strings.Repeat("a", 20) + "\n" + p2,
			strings.Repeat("b", 20) + "\n" + p3,
		}},
		{"hard max on whitespace", 1000, 0, 10, "aaaa bbbb cccc dddd", []string{"aaaa bbbb", "cccc dddd"}},
		{"hard max without whitespace", 1000, 0, 10, strings.Repeat("x", 25), []string{
			strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewChunker(tt.target, tt.overlap, tt.hardMax).Chunk(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunks %q, want %d %q", len(got), got, len(tt.want), tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunker_HardMaxAlwaysHolds(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("word ", 90))
		b.WriteString("\n\n")
	}
	c := NewChunker(DefaultTargetChars, DefaultOverlapChars, DefaultHardMaxChars)
	chunks := c.Chunk(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := len([]rune(ch)); n > DefaultHardMaxChars {
			t.Errorf("chunk %d has %d runes, over hard max", i, n)
		}
		if strings.TrimSpace(ch) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestChunker_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 8)
	got := NewChunker(100, 0, 5).Chunk(text)
	if len(got) != 2 || got[0] != strings.Repeat("é", 5) || got[1] != strings.Repeat("é", 3) {
		t.Errorf("got %q", got)
	}
}

func TestSafeCut(t *testing.T) {
	tests := []struct {
		s     string
		limit int
		want  int
	}{
		{"short", 10, 5},
		{"ab cd ef", 6, 5},
		{" abcdefgh", 4, 4},
		{"abc\ndefg", 5, 3},
	}
	for _, tt := range tests {
		if got := safeCut([]rune(tt.s), tt.limit); got != tt.want {
			t.Errorf("safeCut(%q, %d) = %d, want %d", tt.s, tt.limit, got, tt.want)
		}
	}
}

func TestMakeDocs(t *testing.T) {
	docs := MakeDocs([]string{"one", "two"}, "Policy.pdf", "")
	if len(docs) != 2 {
		t.Fatalf("got %d docs", len(docs))
	}
	for i, d := range docs {
		if d.Metadata[models.MetaChunk] != i {
			t.Errorf("doc %d chunk = %v", i, d.Metadata[models.MetaChunk])
		}
		if d.Source() != "Policy.pdf" {
			t.Errorf("doc %d source = %q", i, d.Source())
		}
		if d.Metadata[models.MetaTenant] != "default" {
			t.Errorf("doc %d tenant = %v", i, d.Metadata[models.MetaTenant])
		}
	}
	if docs[1].Text != "two" {
		t.Errorf("text = %q", docs[1].Text)
	}
	if got := MakeDocs(nil, "x", "t"); len(got) != 0 {
		t.Errorf("MakeDocs(nil) = %v", got)
	}
}
