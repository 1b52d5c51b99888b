package compress

// Compress encodes and decodes version content before it hits the
// store. The codec name is recorded on the version row so old rows stay
// readable after the default codec changes.
type Compress interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// ByName resolves a codec by the name stored on a version row.
// Unknown or empty names fall back to the nop codec.
func ByName(name string) Compress {
	switch name {
	case "gzip":
		return NewGZip()
	case "brotli":
		return NewBrotli()
	case "lz4":
		return NewLZ4()
	default:
		return NewNop()
	}
}
