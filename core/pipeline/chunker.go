package pipeline

import (
	"fmt"
	"strings"
	"unicode"
)

// WindowChunker creates a chunker producing overlapping fixed-size windows.
// Windows are size runes long and each subsequent window starts
// size-overlap runes after the previous window's start. The trailing edge
// of every non-final window is snapped backwards, within the overlap
// region, to the nearest paragraph break, then sentence end, then
// whitespace, so chunks never end mid-word or mid-multibyte-character.
// Deterministic for the same text and configuration.
func WindowChunker(size, overlap int) ChunkFunc {
	return func(text string) ([]Window, error) {
		if size <= 0 {
			return nil, fmt.Errorf("chunk size must be positive, got %d", size)
		}
		if overlap < 0 || overlap >= size {
			return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d with size %d", overlap, size)
		}

		if strings.TrimSpace(text) == "" {
			return []Window{}, nil
		}

		runes := []rune(text)
		step := size - overlap

		var windows []Window
		index := 0

		for start := 0; start < len(runes); start += step {
			end := start + size
			final := false
			if end >= len(runes) {
				end = len(runes)
				final = true
			} else {
				end = snapBoundary(runes, start, end, overlap)
			}

			content := string(runes[start:end])
			if strings.TrimSpace(content) != "" {
				windows = append(windows, Window{
					Text:  content,
					Start: start,
					End:   end,
					Index: index,
				})
				index++
			}

			if final {
				break
			}
		}

		return windows, nil
	}
}

// snapBoundary moves the window end backwards to the best break inside the
// overlap region: paragraph break, then sentence end, then whitespace.
// Keeping the snap within the overlap guarantees the next window (which
// starts at a fixed stride) still begins at or before the snapped end, so
// adjacent windows never leave a gap.
func snapBoundary(runes []rune, start, end, overlap int) int {
	lo := end - overlap
	if lo <= start {
		lo = start + 1
	}

	for i := end - 1; i > lo; i-- {
		if runes[i-1] == '\n' && runes[i] == '\n' {
			return i + 1
		}
	}

	for i := end - 2; i >= lo; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}

	for i := end - 1; i >= lo; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
