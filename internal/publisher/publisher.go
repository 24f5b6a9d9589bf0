package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/estscraper/estscraper/internal/config"
	"github.com/estscraper/estscraper/pkg/models"
)

// Publisher pushes readings to an MQTT broker and/or the Home
// Assistant HTTP API
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	httpClient  *http.Client
}

// New creates a new publisher from the configured targets. At least
// one of MQTT or Home Assistant must be enabled.
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig, topicPrefix string) (*Publisher, error) {
	if !mqttCfg.Enabled && !haCfg.Enabled {
		return nil, fmt.Errorf("no publishing target is enabled in config")
	}

	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
		if haCfg.EntityID == "" {
			return nil, fmt.Errorf("Home Assistant entity_id is required when enabled")
		}
	}

	var client mqtt.Client
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("estscraper")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		haConfig:    haCfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Publish sends one reading to every enabled target
func (p *Publisher) Publish(reading models.Reading) error {
	if p.client != nil {
		if err := p.publishMQTT(reading); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(reading); err != nil {
			return err
		}
	}
	return nil
}

// mqttReading is the JSON payload published per reading
type mqttReading struct {
	Date        string   `json:"date"`
	Consumption float64  `json:"consumption"`
	Production  *float64 `json:"production,omitempty"`
}

func (p *Publisher) publishMQTT(reading models.Reading) error {
	payload, err := json.Marshal(mqttReading{
		Date:        reading.Date,
		Consumption: reading.Consumption,
		Production:  reading.Production,
	})
	if err != nil {
		return fmt.Errorf("encoding MQTT payload: %w", err)
	}

	topic := fmt.Sprintf("%s/reading", p.topicPrefix)
	if token := p.client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// HAPayload matches the Home Assistant backfill service call data
type HAPayload struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
	LastUpdated string `json:"last_updated"`
}

func (p *Publisher) publishHA(reading models.Reading) error {
	// AppDaemon API endpoint for backfilling historical states
	apiURL := fmt.Sprintf("%s/api/appdaemon/backfill_state", p.haConfig.URL)

	// Reading dates are minute-precision UTC strings
	timestamp := reading.Date
	if t, err := time.Parse("2006-01-02 15:04", reading.Date); err == nil {
		timestamp = t.UTC().Format(time.RFC3339)
	}

	payload := HAPayload{
		EntityID:    p.haConfig.EntityID,
		State:       fmt.Sprintf("%.3f", reading.Consumption),
		LastChanged: timestamp,
		LastUpdated: timestamp,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequest("POST", apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
