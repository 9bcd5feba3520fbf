package ingest

import (
	"fmt"

	"github.com/maxpert/geyserbridge/cfg"
)

// NewSource builds the source selected by the ingest configuration
func NewSource(c cfg.IngestConfiguration) (Source, error) {
	switch c.Type {
	case cfg.IngestNATS:
		return NewNatsSource(c.NatsURL, c.Subject, c.QueueGroup, c.BufferSize)
	case cfg.IngestKafka:
		return NewKafkaSource(c.Brokers, c.Topic, c.GroupID)
	default:
		return nil, fmt.Errorf("unknown ingest type: %s", c.Type)
	}
}
