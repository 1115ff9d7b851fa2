package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/janiskrasemann/forecast/internal/aggregator"
	"github.com/janiskrasemann/forecast/internal/decoder"
)

type Config struct {
	Schedule       string         `yaml:"schedule" validate:"omitempty,schedule"`
	Edition        int            `yaml:"edition" validate:"min=0"`
	Timeout        time.Duration  `yaml:"timeout" validate:"min=0"`
	MaxConcurrency int            `yaml:"max_concurrency" validate:"min=0"`
	MetricsAddr    string         `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Email          *EmailConfig   `yaml:"email"`
	Sources        []SourceConfig `yaml:"sources" validate:"unique=Name,dive"`
}

type EmailConfig struct {
	From         string `yaml:"from" validate:"required,email"`
	To           string `yaml:"to" validate:"required,email"`
	ResendAPIKey string `yaml:"resend_api_key" validate:"required,excludes=${"`
}

type SourceConfig struct {
	Name    string        `yaml:"name" validate:"required"`
	URL     string        `yaml:"url" validate:"required,excludes=${"`
	Decoder string        `yaml:"decoder" validate:"required,decoder"`
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default}. Unset variables without
// a default are left untouched; the excludes=${ rules reject them.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := strings.TrimSuffix(strings.TrimPrefix(string(match), "${"), "}")

		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		if hasDefault {
			return []byte(defaultVal)
		}
		return match
	})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("decoder", func(fl validator.FieldLevel) bool {
		_, ok := decoder.Lookup(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct-level rules. Endpoint URLs are checked by the
// aggregator when a run starts.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "decoder":
			msgs = append(msgs, fmt.Sprintf("%s: unknown decoder %q (known: %s)",
				fe.Namespace(), fe.Value(), strings.Join(decoder.Names(), ", ")))
		case "schedule":
			msgs = append(msgs, fmt.Sprintf("%s: invalid cron expression %q", fe.Namespace(), fe.Value()))
		case "excludes":
			msgs = append(msgs, fmt.Sprintf("%s: unresolved ${...} placeholder, is the variable set?", fe.Namespace()))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s: source names must be unique", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %q check", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("validating config: %s", strings.Join(msgs, "; "))
}

// BuildSources resolves the configured decoders into aggregator sources.
func (c *Config) BuildSources() ([]aggregator.Source, error) {
	sources := make([]aggregator.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		dec, ok := decoder.Lookup(sc.Decoder)
		if !ok {
			return nil, fmt.Errorf("source %q: unknown decoder %q", sc.Name, sc.Decoder)
		}
		sources = append(sources, aggregator.Source{
			Name:     sc.Name,
			Endpoint: sc.URL,
			Decoder:  dec,
			Timeout:  sc.Timeout,
		})
	}
	return sources, nil
}

// IncrementEdition bumps the edition counter in the file at path. The raw
// document is edited as a node tree so ${VAR} placeholders are written back
// unexpanded.
func IncrementEdition(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config file %s is not a mapping", path)
	}
	root := doc.Content[0]

	found := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "edition" {
			continue
		}
		current, _ := strconv.Atoi(root.Content[i+1].Value)
		root.Content[i+1].Value = strconv.Itoa(current + 1)
		found = true
		break
	}
	if !found {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "edition"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: "1"},
		)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding config file: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
