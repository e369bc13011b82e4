package config

import (
	"encoding/json"
	"os"

	"authkeeper/internal/flagx"
	"authkeeper/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "30m" and integer nanoseconds. After
// unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	Backend               string         `json:"backend"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	TableName             string         `json:"table_name"`
	TableIDFields         []string       `json:"table_id_fields"`
	TableAddTimestamps    *bool          `json:"table_add_timestamps"`
	AWSRegion             string         `json:"aws_region"`
	AWSEndpoint           string         `json:"aws_endpoint"`
	AWSAccessKeyID        string         `json:"aws_access_key_id"`
	AWSSecretAccessKey    string         `json:"aws_secret_access_key"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. Fields absent from the file keep
// their current (default) values. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.Backend != "" {
		config.Backend = c.Backend
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.TableName != "" {
		config.TableName = c.TableName
	}
	if len(c.TableIDFields) > 0 {
		config.TableIDFields = c.TableIDFields
	}
	if c.TableAddTimestamps != nil {
		config.TableAddTimestamps = *c.TableAddTimestamps
	}
	if c.AWSRegion != "" {
		config.AWSRegion = c.AWSRegion
	}
	if c.AWSEndpoint != "" {
		config.AWSEndpoint = c.AWSEndpoint
	}
	if c.AWSAccessKeyID != "" {
		config.AWSAccessKeyID = c.AWSAccessKeyID
	}
	if c.AWSSecretAccessKey != "" {
		config.AWSSecretAccessKey = c.AWSSecretAccessKey
	}
}
