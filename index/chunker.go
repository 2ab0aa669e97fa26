package index

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	maxTokensPerChunk = 512
	overlapTokens     = 50
)

// splitIntoChunks token-splits text into overlapping windows so long
// contract sections still fit the embedding model's context.
func splitIntoChunks(content string) ([]string, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %v", err)
	}

	tokens := encoding.Encode(content, nil, nil)
	if len(tokens) <= maxTokensPerChunk {
		return []string{content}, nil
	}

	var chunks []string
	var currentChunk []int
	for i := 0; i < len(tokens); i++ {
		currentChunk = append(currentChunk, tokens[i])

		if len(currentChunk) >= maxTokensPerChunk {
			chunks = append(chunks, encoding.Decode(currentChunk))

			if len(currentChunk) > overlapTokens {
				currentChunk = currentChunk[len(currentChunk)-overlapTokens:]
			} else {
				currentChunk = []int{}
			}
		}
	}
	if len(currentChunk) > overlapTokens {
		chunks = append(chunks, encoding.Decode(currentChunk))
	}

	return chunks, nil
}
