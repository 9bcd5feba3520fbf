package sink

import "github.com/maxpert/geyserbridge/publisher"

// Compile-time interface verification
var (
	_ publisher.Publisher = (*RedisSink)(nil)
	_ publisher.Publisher = (*NatsSink)(nil)
	_ publisher.Publisher = (*KafkaSink)(nil)
	_ publisher.Publisher = (*MockSink)(nil)
)
