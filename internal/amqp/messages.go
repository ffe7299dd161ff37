package amqp

import (
	"encoding/json"
	"time"
)

// CacheInvalidation tells other instances that the API data changed and
// their response caches are stale. Origin identifies the sender so an
// instance can ignore its own messages.
type CacheInvalidation struct {
	Origin    string    `json:"origin"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCacheInvalidation creates a message for a mutation just performed.
func NewCacheInvalidation(origin, operation string) *CacheInvalidation {
	return &CacheInvalidation{
		Origin:    origin,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CacheInvalidation) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CacheInvalidationFromJSON decodes a message body.
func CacheInvalidationFromJSON(data []byte) (*CacheInvalidation, error) {
	var msg CacheInvalidation
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
