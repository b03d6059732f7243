package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError is a single schema violation.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// SchemaError lists every violation found in a config file.
type SchemaError struct {
	Errors []ValidationError
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

var configSchema = []byte(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"identity": {"type": "string"},
		"passphrase": {"type": "string"},
		"key_length": {"type": "integer", "enum": [16, 24, 32]},
		"kdf": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"iterations": {"type": "integer", "minimum": 1},
				"hash": {"type": "string", "enum": ["sha1", "sha256"]}
			}
		},
		"reject_plaintext": {"type": "boolean"},
		"store": {"type": "string", "enum": ["dht", "sqlite"]},
		"sqlite": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"path": {"type": "string", "minLength": 1},
				"max_values": {"type": "integer", "minimum": 0}
			}
		},
		"dht": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"listen_addrs": {"type": "array", "items": {"type": "string", "pattern": "^/"}},
				"bootstrap": {"type": "array", "items": {"type": "string", "pattern": "^/.+/p2p/"}},
				"protocol_prefix": {"type": "string", "pattern": "^/"},
				"mode": {"type": "string", "enum": ["client", "server", "auto"]},
				"timeout": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?(ms|s|m)$"},
				"identity_file": {"type": "string"}
			}
		}
	}
}`)

var (
	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
)

// validate checks raw config JSON against the schema.
func validate(data []byte) error {
	compileOnce.Do(func() {
		compiled, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(configSchema))
	})
	if compileErr != nil {
		return fmt.Errorf("invalid config schema: %w", compileErr)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, len(result.Errors()))
	for i, re := range result.Errors() {
		errs[i] = ValidationError{Field: re.Field(), Description: re.Description()}
	}
	return &SchemaError{Errors: errs}
}
