package graph

import (
	"sort"
	"unicode/utf8"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"

	"github.com/pkoukk/tiktoken-go"
)

// ChunkOptions controls how document text is segmented. Zero values fall
// back to the defaults below.
type ChunkOptions struct {
	// TargetSize is the preferred chunk length in bytes.
	TargetSize int
	// Overlap is how far a chunk reaches back into its predecessor.
	Overlap int
	// LookBack bounds the search for a sentence or paragraph boundary
	// before the target cut point.
	LookBack int
	// MinViable is the smallest remainder worth emitting on its own; a
	// smaller tail is absorbed into the previous chunk.
	MinViable int
	// TokenEncoder optionally names a tiktoken encoding used to attach
	// token counts to chunks. Empty skips counting.
	TokenEncoder string
}

const (
	defaultChunkTarget    = 8000
	defaultChunkOverlap   = 1600
	defaultChunkLookBack  = 100
	defaultChunkMinViable = 500
)

func (o ChunkOptions) withDefaults() ChunkOptions {
	if o.TargetSize <= 0 {
		o.TargetSize = defaultChunkTarget
	}
	if o.Overlap <= 0 {
		o.Overlap = defaultChunkOverlap
	}
	if o.Overlap >= o.TargetSize {
		o.Overlap = o.TargetSize / 4
	}
	if o.LookBack <= 0 {
		o.LookBack = defaultChunkLookBack
	}
	if o.MinViable <= 0 {
		o.MinViable = defaultChunkMinViable
	}
	return o
}

// ChunkDocument splits text into overlapping segments of at most roughly
// TargetSize bytes, preferring to cut at a sentence boundary or paragraph
// break near the target cut point. Text at or under the target size comes
// back as a single chunk. Form feed characters are treated as page
// separators and each chunk records the 1-based page range it overlaps.
func ChunkDocument(docKey, text string, opts ChunkOptions) ([]common.Chunk, error) {
	opts = opts.withDefaults()

	pages := pageOffsets(text)

	var enc *tiktoken.Tiktoken
	if opts.TokenEncoder != "" {
		var err error
		enc, err = tiktoken.GetEncoding(opts.TokenEncoder)
		if err != nil {
			return nil, err
		}
	}

	var chunks []common.Chunk
	emit := func(start, end int) {
		c := common.Chunk{
			DocumentKey: docKey,
			Start:       start,
			End:         end,
			PageStart:   pageAt(pages, start),
			PageEnd:     pageAt(pages, max(start, end-1)),
			Text:        text[start:end],
		}
		if enc != nil {
			c.TokenCount = len(enc.Encode(c.Text, nil, nil))
		}
		chunks = append(chunks, c)
	}

	if len(text) <= opts.TargetSize {
		if len(text) > 0 {
			emit(0, len(text))
		}
	} else {
		pos := 0
		for pos < len(text) {
			end := pos + opts.TargetSize
			if end >= len(text) {
				end = len(text)
			} else {
				if cut := findCutPoint(text, end, opts.LookBack); cut > pos {
					end = cut
				}
				end = runeAlign(text, end)
				// absorb a degenerate tail into this chunk
				if len(text)-end < opts.MinViable {
					end = len(text)
				}
			}

			emit(pos, end)
			if end >= len(text) {
				break
			}

			next := runeAlign(text, end-opts.Overlap)
			if next <= pos {
				next = end
			}
			pos = next
		}
	}

	for i := range chunks {
		chunks[i].Index = i + 1
		chunks[i].Total = len(chunks)
	}
	return chunks, nil
}

// findCutPoint searches backwards from end (at most lookBack bytes) for a
// sentence boundary, then for a paragraph break. It returns the byte
// offset to cut at, or -1 when the window holds neither.
func findCutPoint(text string, end, lookBack int) int {
	low := end - lookBack
	if low < 0 {
		low = 0
	}

	for i := end - 1; i > low; i-- {
		c := text[i-1]
		if (c == '.' || c == '!' || c == '?') && isSpaceByte(text[i]) {
			return i
		}
	}

	for i := end - 1; i > low; i-- {
		if text[i] == '\n' && text[i-1] == '\n' {
			return i + 1
		}
	}

	return -1
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// runeAlign moves pos back to the nearest UTF-8 rune start so a cut never
// splits a multi-byte character.
func runeAlign(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// pageOffsets returns the byte offsets at which each page starts. Page 1
// starts at 0, every form feed starts the next page.
func pageOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\f' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// pageAt returns the 1-based page containing the byte offset.
func pageAt(offsets []int, pos int) int {
	idx := sort.Search(len(offsets), func(i int) bool { return offsets[i] > pos })
	return idx
}
