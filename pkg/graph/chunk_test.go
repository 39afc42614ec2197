package graph

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

var testChunkOpts = ChunkOptions{
	TargetSize: 200,
	Overlap:    40,
	LookBack:   60,
	MinViable:  30,
}

func sentenceText(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "Sentence number %d in the test corpus. ", i)
	}
	return b.String()
}

func TestChunkDocumentShortText(t *testing.T) {
	text := "A single short paragraph."
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != text || c.Start != 0 || c.End != len(text) {
		t.Errorf("chunk does not cover the text: %+v", c)
	}
	if c.Index != 1 || c.Total != 1 {
		t.Errorf("index/total = %d/%d, want 1/1", c.Index, c.Total)
	}
	if c.PageStart != 1 || c.PageEnd != 1 {
		t.Errorf("pages = %d-%d, want 1-1", c.PageStart, c.PageEnd)
	}
	if c.TokenCount != 0 {
		t.Errorf("token count = %d, want 0 with no encoder", c.TokenCount)
	}
}

func TestChunkDocumentEmptyText(t *testing.T) {
	chunks, err := ChunkDocument("doc", "", testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks = %d, want 0", len(chunks))
	}
}

func TestChunkDocumentCoverage(t *testing.T) {
	text := sentenceText(40)
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for %d bytes, got %d", len(text), len(chunks))
	}

	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %d, want 0", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(text))
	}

	for i, c := range chunks {
		if c.Text != text[c.Start:c.End] {
			t.Errorf("chunk %d text does not match its offsets", i)
		}
		if len(c.Text) > testChunkOpts.TargetSize+testChunkOpts.MinViable {
			t.Errorf("chunk %d is %d bytes, exceeds target plus tail allowance", i, len(c.Text))
		}
		if c.Index != i+1 || c.Total != len(chunks) {
			t.Errorf("chunk %d index/total = %d/%d", i, c.Index, c.Total)
		}
		if i == 0 {
			continue
		}
		prev := chunks[i-1]
		if c.Start >= prev.End {
			t.Errorf("chunk %d does not overlap its predecessor (start %d, prev end %d)", i, c.Start, prev.End)
		}
		if c.End <= prev.End {
			t.Errorf("chunk %d makes no forward progress (end %d, prev end %d)", i, c.End, prev.End)
		}
	}
}

func TestChunkDocumentPreferSentenceBoundary(t *testing.T) {
	text := sentenceText(40)
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	// every non-final cut should land just after a sentence terminator
	for i, c := range chunks[:len(chunks)-1] {
		if c.End < 1 || text[c.End-1] != '.' {
			t.Errorf("chunk %d ends mid-sentence: ...%q", i, text[c.End-5:c.End])
		}
	}
}

func TestChunkDocumentNoBoundaryStillTerminates(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 || len(chunks) > 50 {
		t.Fatalf("unexpected chunk count %d for boundary-free text", len(chunks))
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(text))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].End <= chunks[i-1].End {
			t.Fatalf("chunk %d makes no forward progress", i)
		}
	}
}

func TestChunkDocumentPages(t *testing.T) {
	text := "First page intro.\fSecond page body.\fThird page close."
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].PageStart != 1 || chunks[0].PageEnd != 3 {
		t.Errorf("pages = %d-%d, want 1-3", chunks[0].PageStart, chunks[0].PageEnd)
	}
}

func TestChunkDocumentPagesAcrossChunks(t *testing.T) {
	text := sentenceText(10) + "\f" + sentenceText(10)
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].PageStart != 1 {
		t.Errorf("first chunk page start = %d, want 1", chunks[0].PageStart)
	}
	if last := chunks[len(chunks)-1]; last.PageEnd != 2 {
		t.Errorf("last chunk page end = %d, want 2", last.PageEnd)
	}
	for i, c := range chunks {
		if c.PageStart > c.PageEnd {
			t.Errorf("chunk %d page range inverted: %d-%d", i, c.PageStart, c.PageEnd)
		}
	}
}

func TestChunkDocumentNeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("é", 600)
	chunks, err := ChunkDocument("doc", text, testChunkOpts)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d splits a multi-byte rune", i)
		}
	}
}
