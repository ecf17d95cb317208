package rag

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separator ladder, coarsest first; the empty string means "split anywhere".
var separators = []string{"\n\n", "\n", " ", ""}

// SplitText breaks text into chunks of at most chunkSize characters with the
// given overlap between neighbors. It prefers the coarsest separator that
// still produces pieces small enough, recursing into oversized pieces with
// the next finer one, then greedily merges adjacent small pieces back up to
// chunkSize.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return split(text, chunkSize, overlap, 0)
}

func split(text string, chunkSize, overlap, sepIdx int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return hardSplit(text, chunkSize, overlap)
	}

	sep := separators[sepIdx]
	if sep == "" {
		return hardSplit(text, chunkSize, overlap)
	}

	pieces := strings.Split(text, sep)
	if len(pieces) == 1 {
		return split(text, chunkSize, overlap, sepIdx+1)
	}

	// recurse into pieces that are still too large
	flat := make([]string, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > chunkSize {
			flat = append(flat, split(p, chunkSize, overlap, sepIdx+1)...)
		} else {
			flat = append(flat, p)
		}
	}

	return merge(flat, sep, chunkSize, overlap)
}

// merge greedily packs pieces into chunks up to chunkSize, carrying a tail
// of roughly overlap characters into the next chunk.
func merge(pieces []string, sep string, chunkSize, overlap int) []string {
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunk := cur.String()
		chunks = append(chunks, chunk)
		cur.Reset()
		if overlap > 0 && len(chunk) > overlap {
			cur.WriteString(chunk[len(chunk)-overlap:])
		}
	}

	for _, p := range pieces {
		needed := len(p)
		if cur.Len() > 0 {
			needed += len(sep)
		}
		if cur.Len()+needed > chunkSize {
			flush()
			// drop the carried tail when it alone would push the piece
			// over budget
			if cur.Len() > 0 && cur.Len()+len(sep)+len(p) > chunkSize {
				cur.Reset()
			}
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func hardSplit(text string, chunkSize, overlap int) []string {
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// ChunkDocuments splits every document, tagging each chunk with its source.
func ChunkDocuments(docs []Document, chunkSize, overlap int) []Chunk {
	var chunks []Chunk
	for _, d := range docs {
		for _, c := range SplitText(d.Content, chunkSize, overlap) {
			chunks = append(chunks, Chunk{Source: d.Source, Content: c})
		}
	}
	return chunks
}
