package kafka

import (
	"testing"

	"github.com/healthflow-ai/platform/pkg/common/logger"
)

func init() {
	logger.Init()
}

func TestNewConsumerConstructsReader(t *testing.T) {
	consumer := NewConsumer("features.extracted", "test-group")
	if consumer.reader == nil {
		t.Fatal("expected a configured reader")
	}
	if err := consumer.Close(); err != nil {
		t.Fatalf("closing unstarted consumer: %v", err)
	}
}

func TestNewConsumerDefaultsGroupID(t *testing.T) {
	consumer := NewConsumer("features.extracted", "")
	defer consumer.Close()

	if got := consumer.reader.Config().GroupID; got == "" {
		t.Fatal("expected the configured default group id")
	}
}

func TestNewProducerConstructsWriter(t *testing.T) {
	producer := NewProducer("features.extracted")
	if producer.writer == nil {
		t.Fatal("expected a configured writer")
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("closing unused producer: %v", err)
	}
}
