package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Headers stamped on republished deliveries. Downstream tooling keys off
// these names, so they are part of the wire contract.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalQueue = "x-original-queue"
	HeaderFailedReason  = "x-failed-reason"
	HeaderFailedAt      = "x-failed-at"
)

// RetryCountFrom reads the attempt counter from delivery headers. The broker
// hands numeric headers back at whatever width the publisher encoded, so all
// the common widths are accepted. Absent or malformed values count as a first
// attempt.
func RetryCountFrom(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	value, ok := headers[HeaderRetryCount]
	if !ok {
		return 0
	}
	count := 0
	switch n := value.(type) {
	case int:
		count = n
	case int8:
		count = int(n)
	case int16:
		count = int(n)
	case int32:
		count = int(n)
	case int64:
		count = int(n)
	case float32:
		count = int(n)
	case float64:
		count = int(n)
	}
	if count < 0 {
		return 0
	}
	return count
}
