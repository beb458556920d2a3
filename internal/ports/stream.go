package ports

import "github.com/bft-labs/ethlink/internal/domain"

// StreamSource is the producer side of a ready/valid stream boundary.
// A pipeline calls Next when it is ready to accept a word.
type StreamSource interface {
	// Next returns the next word and true when the producer is valid.
	// Returns false when the producer has nothing to offer this cycle;
	// the word is not consumed in that case.
	Next() (domain.StreamWord, bool)
}

// StreamSink is the consumer side of a stream boundary.
type StreamSink interface {
	// Push hands a word to the consumer.
	Push(words ...domain.StreamWord)
}
