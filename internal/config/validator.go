package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "ui.max_steps")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// repoRegex matches "owner/name" GitHub repository slugs
var repoRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// MinMaxSteps is the smallest accepted ui.max_steps; the live renderer needs
// it to give every step group a line.
const MinMaxSteps = 5

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidUIModes returns the list of valid ui.mode values
func ValidUIModes() []string {
	return []string{"auto", "live", "text"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateUI()...)
	errors = append(errors, c.validateLock()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateNPM()...)
	errors = append(errors, c.validateGitHub()...)
	errors = append(errors, c.validateSeeds()...)

	return errors
}

func (c *Config) validateCache() []ValidationError {
	var errors []ValidationError
	if strings.TrimSpace(c.Cache.Dir) == "" {
		errors = append(errors, ValidationError{Field: "cache.dir", Value: c.Cache.Dir, Message: "must not be empty"})
	}
	errors = append(errors, positiveDuration("cache.ttl", c.Cache.TTL)...)
	return errors
}

func (c *Config) validateUI() []ValidationError {
	var errors []ValidationError
	if !slices.Contains(ValidUIModes(), c.UI.Mode) {
		errors = append(errors, ValidationError{
			Field:   "ui.mode",
			Value:   c.UI.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidUIModes(), ", ")),
		})
	}
	if c.UI.MaxSteps < MinMaxSteps {
		errors = append(errors, ValidationError{
			Field:   "ui.max_steps",
			Value:   c.UI.MaxSteps,
			Message: fmt.Sprintf("must be at least %d", MinMaxSteps),
		})
	}
	errors = append(errors, positiveDuration("ui.tick", c.UI.Tick)...)
	return errors
}

func (c *Config) validateLock() []ValidationError {
	var errors []ValidationError
	if c.Lock.Retries < 0 {
		errors = append(errors, ValidationError{Field: "lock.retries", Value: c.Lock.Retries, Message: "must be non-negative"})
	}
	errors = append(errors, positiveDuration("lock.stale_after", c.Lock.StaleAfter)...)
	errors = append(errors, positiveDuration("lock.retry_delay", c.Lock.RetryDelay)...)
	errors = append(errors, positiveDuration("lock.heartbeat", c.Lock.Heartbeat)...)
	if c.Lock.Heartbeat > 0 && c.Lock.StaleAfter > 0 && c.Lock.Heartbeat >= c.Lock.StaleAfter {
		errors = append(errors, ValidationError{
			Field:   "lock.heartbeat",
			Value:   c.Lock.Heartbeat,
			Message: "must be shorter than lock.stale_after",
		})
	}
	return errors
}

func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level == "" || slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		return nil
	}
	return []ValidationError{{
		Field:   "logging.level",
		Value:   c.Logging.Level,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
	}}
}

func (c *Config) validateNPM() []ValidationError {
	var errors []ValidationError
	errors = append(errors, httpURL("npm.registry", c.NPM.Registry)...)
	errors = append(errors, nonNegative("npm.concurrency", c.NPM.Concurrency)...)
	errors = append(errors, positiveDuration("npm.ttl", c.NPM.TTL)...)
	return errors
}

func (c *Config) validateGitHub() []ValidationError {
	var errors []ValidationError
	errors = append(errors, httpURL("github.api", c.GitHub.API)...)
	errors = append(errors, nonNegative("github.concurrency", c.GitHub.Concurrency)...)
	if c.GitHub.Repo != "" && !repoRegex.MatchString(c.GitHub.Repo) {
		errors = append(errors, ValidationError{Field: "github.repo", Value: c.GitHub.Repo, Message: "must be of the form owner/name"})
	}
	return errors
}

func (c *Config) validateSeeds() []ValidationError {
	var errors []ValidationError
	if c.Seeds.Port < 1 || c.Seeds.Port > 65535 {
		errors = append(errors, ValidationError{Field: "seeds.port", Value: c.Seeds.Port, Message: "must be between 1 and 65535"})
	}
	for _, host := range c.Seeds.Hosts {
		if strings.TrimSpace(host) == "" || strings.ContainsAny(host, " /:") {
			errors = append(errors, ValidationError{Field: "seeds.hosts", Value: host, Message: "must be a bare host name"})
		}
	}
	errors = append(errors, positiveDuration("seeds.timeout", c.Seeds.Timeout)...)
	errors = append(errors, nonNegative("seeds.concurrency", c.Seeds.Concurrency)...)
	errors = append(errors, positiveDuration("seeds.ttl", c.Seeds.TTL)...)
	return errors
}

func positiveDuration(field string, d time.Duration) []ValidationError {
	if d > 0 {
		return nil
	}
	return []ValidationError{{Field: field, Value: d, Message: "must be a positive duration"}}
}

func nonNegative(field string, n int) []ValidationError {
	if n >= 0 {
		return nil
	}
	return []ValidationError{{Field: field, Value: n, Message: "must be non-negative (0 means unbounded)"}}
}

func httpURL(field, raw string) []ValidationError {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []ValidationError{{Field: field, Value: raw, Message: "must be an http or https URL"}}
	}
	return nil
}
