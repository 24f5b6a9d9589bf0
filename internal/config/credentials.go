package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables holding the e-st.lv account credentials and
// meter identifiers. All four are required before a fetch can start.
const (
	EnvUsername = "EST_USERNAME"
	EnvPassword = "EST_PASSWORD"
	EnvObjectID = "EST_OBJECT_ID"
	EnvMeterID  = "EST_METER_ID"
)

// Credentials identify the e-st.lv account and the meter being queried
type Credentials struct {
	Username string
	Password string
	ObjectID string // Object EIC ID of the connection point
	MeterID  string // Smart meter number
}

// LoadCredentials reads credentials from the environment, loading a
// .env file from the working directory first if one exists. Every
// missing variable is reported, not just the first.
func LoadCredentials() (*Credentials, error) {
	_ = godotenv.Load()

	creds := &Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
		ObjectID: os.Getenv(EnvObjectID),
		MeterID:  os.Getenv(EnvMeterID),
	}

	var missing []string
	if creds.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if creds.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if creds.ObjectID == "" {
		missing = append(missing, EnvObjectID)
	}
	if creds.MeterID == "" {
		missing = append(missing, EnvMeterID)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return creds, nil
}
