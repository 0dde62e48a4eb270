package cloudwriter

// CloudWriter buffers or streams one object. The object is complete once
// Close returns without error.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}
