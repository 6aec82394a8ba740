package chunker

import (
	"strings"
	"testing"
)

func TestChunker_Split(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
		wantMin int
	}{
		{
			name:    "long text produces multiple chunks",
			size:    300,
			overlap: 50,
			text:    strings.Repeat("a", 500),
			wantMin: 2,
		},
		{
			name:    "text shorter than chunk size",
			size:    300,
			overlap: 50,
			text:    "Short text",
			wantMin: 1,
		},
		{
			name:    "unicode text",
			size:    100,
			overlap: 20,
			text:    "Hello 世界! " + strings.Repeat("测试", 80),
			wantMin: 2,
		},
		{
			name:    "empty text",
			size:    300,
			overlap: 50,
			text:    "",
			wantMin: 0,
		},
		{
			name:    "whitespace-only text",
			size:    300,
			overlap: 50,
			text:    "   \n\n\t  ",
			wantMin: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.size, tt.overlap)
			chunks := c.Split(tt.text)

			if len(chunks) < tt.wantMin {
				t.Errorf("Split() returned %d chunks, want at least %d", len(chunks), tt.wantMin)
			}

			for i, chunk := range chunks {
				if len([]rune(chunk)) > tt.size {
					t.Errorf("chunk %d has %d runes, exceeds size %d", i, len([]rune(chunk)), tt.size)
				}
				if strings.TrimSpace(chunk) == "" {
					t.Errorf("chunk %d is blank", i)
				}
			}
		})
	}
}

func TestChunker_Split_PrefersParagraphBreak(t *testing.T) {
	c := New(100, 0)
	// Paragraph break lands in the back half of the window, so the first
	// chunk should end exactly at the first paragraph.
	first := strings.Repeat("x", 80)
	second := strings.Repeat("y", 100)
	chunks := c.Split(first + "\n\n" + second)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != first {
		t.Errorf("first chunk = %q, want the first paragraph", chunks[0])
	}
}

func TestChunker_Split_PrefersSentenceEnd(t *testing.T) {
	c := New(100, 0)
	sentence := strings.Repeat("w", 78) + ". "
	rest := strings.Repeat("z", 100)
	chunks := c.Split(sentence + rest)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at the sentence, got %q", chunks[0])
	}
}

func TestChunker_Split_Overlap(t *testing.T) {
	c := New(200, 50)
	text := strings.Repeat("abcdefghi ", 60) // 600 runes, word boundaries only

	chunks := c.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks for 600 runes at size 200, got %d", len(chunks))
	}

	// The tail of each chunk falls inside the overlap region, so it must
	// reappear at the start of the next chunk.
	for i := 1; i < len(chunks); i++ {
		r := []rune(chunks[i-1])
		tail := strings.TrimSpace(string(r[len(r)-30:]))
		if !strings.Contains(chunks[i], tail) {
			t.Errorf("chunk %d does not repeat the overlap tail of chunk %d", i, i-1)
		}
	}
}

func TestChunker_Split_Progresses(t *testing.T) {
	// Overlap >= size must not stall the scan.
	c := New(10, 20)
	chunks := c.Split(strings.Repeat("q", 100))
	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, -5)
	if c.size != DefaultChunkSize {
		t.Errorf("size = %d, want %d", c.size, DefaultChunkSize)
	}
	if c.overlap != 0 {
		t.Errorf("overlap = %d, want 0", c.overlap)
	}
}
