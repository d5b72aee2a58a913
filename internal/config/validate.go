package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned by RequireLLM when no API key is configured.
var ErrMissingAPIKey = errors.New("no LLM API key configured: set GROQ_API_KEY or LLM_API_KEY")

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency))
	}
	if c.Pipeline.StageTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.stage_timeout must be positive"))
	}
	if c.Pipeline.FetchTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.fetch_timeout must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %g", c.LLM.Temperature))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL))
	}
	if c.Email.MaxMessages < 1 || c.Email.MaxMessages > 500 {
		errs = append(errs, fmt.Errorf("email.max_messages must be between 1 and 500, got %d", c.Email.MaxMessages))
	}
	if _, err := time.LoadLocation(c.Calendar.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("calendar.time_zone: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// RequireLLM reports whether the language model can be used.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
