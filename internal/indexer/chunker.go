package indexer

import (
	"strings"

	"github.com/hyperjump/policysimplify/internal/extract"
	"github.com/hyperjump/policysimplify/internal/models"
)

// Default chunker limits, in characters.
const (
	DefaultTargetChars  = 1200
	DefaultOverlapChars = 200
	DefaultHardMaxChars = 2000
)

// overlapLines is the number of trailing lines of a chunk's tail carried into the next chunk.
const overlapLines = 3

// Chunker greedily packs paragraphs into chunks of about target characters. Each new chunk
// starts with a few trailing lines of the previous one, and no chunk exceeds hardMax.
// Lengths count runes.
type Chunker struct {
	target  int
	overlap int
	hardMax int
}

// NewChunker creates a chunker. Non-positive target or hardMax take the defaults; a
// negative overlap disables overlap.
func NewChunker(target, overlap, hardMax int) *Chunker {
	if target <= 0 {
		target = DefaultTargetChars
	}
	if hardMax <= 0 {
		hardMax = DefaultHardMaxChars
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{target: target, overlap: overlap, hardMax: hardMax}
}

// Chunk splits text into chunks. Whitespace-only text yields nil.
func (c *Chunker) Chunk(text string) []string {
	text = extract.NormalizeWhitespace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	cur := ""
	for _, p := range paragraphs(text) {
		switch {
		case cur == "":
			cur = p
		case runeLen(cur)+1+runeLen(p) <= c.target:
			cur = cur + "\n" + p
		default:
			chunks = append(chunks, cur)
			if c.overlap > 0 {
				cur = strings.TrimSpace(overlapTail(cur, c.overlap) + "\n" + p)
			} else {
				cur = p
			}
		}

		for runeLen(cur) > c.hardMax {
			r := []rune(cur)
			cut := safeCut(r, c.hardMax)
			chunks = append(chunks, strings.TrimSpace(string(r[:cut])))
			cur = strings.TrimSpace(string(r[cut:]))
		}
	}
	if strings.TrimSpace(cur) != "" {
		chunks = append(chunks, strings.TrimSpace(cur))
	}

	out := chunks[:0]
	for _, ch := range chunks {
		if strings.TrimSpace(ch) != "" {
			out = append(out, ch)
		}
	}
	return out
}

// paragraphs splits text on blank lines and joins the lines of each paragraph with spaces.
func paragraphs(text string) []string {
	var (
		out  []string
		para []string
	)
	flush := func() {
		if len(para) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(para, " ")))
			para = para[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	flush()
	return out
}

// overlapTail returns the non-blank lines among the last overlapLines lines of the final
// n runes of s.
func overlapTail(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[len(r)-n:]
	}
	lines := strings.Split(string(r), "\n")
	if len(lines) > overlapLines {
		lines = lines[len(lines)-overlapLines:]
	}
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// safeCut returns a cut position at or before limit, preferring the last space, then the
// last newline. A boundary at position 0 would not make progress, so limit is used instead.
func safeCut(r []rune, limit int) int {
	if len(r) <= limit {
		return len(r)
	}
	for _, sep := range []rune{' ', '\n'} {
		for i := limit - 1; i > 0; i-- {
			if r[i] == sep {
				return i
			}
		}
	}
	return limit
}

func runeLen(s string) int {
	return len([]rune(s))
}

// MakeDocs wraps chunks into index documents tagged with source name, chunk position and
// tenant.
func MakeDocs(chunks []string, source, tenant string) []*models.Document {
	if tenant == "" {
		tenant = "default"
	}
	docs := make([]*models.Document, len(chunks))
	for i, text := range chunks {
		docs[i] = &models.Document{
			Text: text,
			Metadata: map[string]interface{}{
				models.MetaSource: source,
				models.MetaChunk:  i,
				models.MetaTenant: tenant,
			},
		}
	}
	return docs
}
