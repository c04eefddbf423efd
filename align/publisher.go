package align

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes alignment results and failures to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	results       map[string]ResultSummary
	mu            sync.RWMutex
}

// errorPayload is published when a request fails validation
type errorPayload struct {
	ID        string `json:"id"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}

// NewPublisher creates a new result publisher. MQTT_PUBLISH_PREFIX overrides
// prefix; an empty prefix falls back to DefaultPublishPrefix.
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // Retain so late subscribers see the latest fit
		results:       make(map[string]ResultSummary),
	}
}

// PublishResult publishes a summary to {prefix}/results/{id} and the index
// of all known summaries to {prefix}/results
func (p *Publisher) PublishResult(summary ResultSummary) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.results[summary.ID] = summary
	p.mu.Unlock()

	topic := fmt.Sprintf("%s/results/%s", p.publishPrefix, summary.ID)
	if err := p.publishJSON(topic, summary, p.retain); err != nil {
		log.Printf("Error publishing result for %s: %v", summary.ID, err)
		return err
	}
	log.Printf("Published result for %s: disparity=%.6g scale=%.6g", summary.ID, summary.Disparity, summary.Scale)

	if err := p.publishIndex(); err != nil {
		log.Printf("Error publishing result index: %v", err)
		return err
	}
	return nil
}

// PublishError publishes a failed request to {prefix}/errors/{id}
func (p *Publisher) PublishError(id string, cause error) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if id == "" {
		id = "unknown"
	}

	topic := fmt.Sprintf("%s/errors/%s", p.publishPrefix, id)
	return p.publishJSON(topic, errorPayload{
		ID:        id,
		Error:     cause.Error(),
		Timestamp: time.Now().Unix(),
	}, false)
}

// publishIndex publishes the disparity of every known result
func (p *Publisher) publishIndex() error {
	p.mu.RLock()
	index := make(map[string]float64, len(p.results))
	for id, s := range p.results {
		index[id] = s.Disparity
	}
	p.mu.RUnlock()

	message := map[string]interface{}{
		"disparities": index,
		"timestamp":   time.Now().Unix(),
	}
	return p.publishJSON(fmt.Sprintf("%s/results", p.publishPrefix), message, p.retain)
}

func (p *Publisher) publishJSON(topic string, v any, retain bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetResult returns the last published summary for id
func (p *Publisher) GetResult(id string) (ResultSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.results[id]
	return s, ok
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published results should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
