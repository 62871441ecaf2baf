package transport

// Transport defines the interface for one accepted connection
type Transport interface {
	// Write sends data over the connection
	// Returns the number of bytes written, which may be fewer than len(buf)
	Write(buf []byte) (int, error)

	// Read receives data from the connection
	// Returns the number of bytes read
	Read(buf []byte) (int, error)

	// Close closes the connection
	Close() error
}
