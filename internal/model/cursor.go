package model

import "fmt"

// Stream names an independent block-processing pipeline of a network.
type Stream string

const (
	StreamMarket Stream = "market"
	StreamEvents Stream = "events"
)

// CursorKey identifies one watermark.
type CursorKey struct {
	Network string
	Stream  Stream
}

func (k CursorKey) String() string {
	return fmt.Sprintf("%s:%s", k.Network, k.Stream)
}

// Cursor is the next block a stream will process; everything below it is done.
type Cursor struct {
	Key       CursorKey
	NextBlock uint64
}
