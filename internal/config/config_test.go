package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	original := &Config{
		Cookies: []Cookie{
			{Name: "PHPSESSID", Value: "abc123", Domain: "mans.e-st.lv", Path: "/", Secure: true},
		},
		MQTT: MQTTConfig{Enabled: true, Broker: "localhost:1883", TopicPrefix: "meter"},
		HomeAssistant: HAConfig{
			Enabled: true, URL: "http://ha.local:5050", Token: "tok", EntityID: "sensor.est_energy",
		},
		Rate: 0.21,
	}
	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestGetTopicPrefix(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "electric_meter", cfg.GetTopicPrefix())

	cfg.MQTT.TopicPrefix = "custom"
	assert.Equal(t, "custom", cfg.GetTopicPrefix())
}
