// Package validator provides a pluggable validator registry for field values.
// Validators are looked up by the name declared in the field type registry,
// so new field types plug in a validator instead of growing an if chain.
package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// ValidatorFunc is the signature for validator functions.
// Takes a value and optional configuration, returns an error if validation fails.
type ValidatorFunc func(value interface{}, config map[string]interface{}) error

// Registry holds registered validators
type Registry struct {
	validators map[string]ValidatorFunc
	mu         sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// GetRegistry returns the singleton validator registry
func GetRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = &Registry{
			validators: make(map[string]ValidatorFunc),
		}
		defaultRegistry.registerBuiltins()
	})
	return defaultRegistry
}

// Register adds a validator to the registry
func (r *Registry) Register(name string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = fn
}

// Get returns a validator by name
func (r *Registry) Get(name string) (ValidatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.validators[name]
	return fn, ok
}

// Validate runs a named validator
func (r *Registry) Validate(name string, value interface{}, config map[string]interface{}) error {
	fn, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("validator '%s' not found", name)
	}
	return fn(value, config)
}

// List returns all registered validator names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	return names
}

// optionValues extracts the allowed option values from validator config
func optionValues(config map[string]interface{}) []string {
	if config == nil {
		return nil
	}
	switch opts := config["options"].(type) {
	case []string:
		return opts
	case []interface{}:
		out := make([]string, 0, len(opts))
		for _, o := range opts {
			if s, ok := o.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asString(value interface{}) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// registerBuiltins registers all built-in validators
func (r *Registry) registerBuiltins() {
	// Email validator (RFC-shape address)
	r.Register("email", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			if !ok && value != nil {
				return fmt.Errorf("expected string")
			}
			return nil // Empty values handled by required check
		}
		if _, err := mail.ParseAddress(str); err != nil {
			return fmt.Errorf("invalid email format")
		}
		return nil
	})

	// URL validator
	r.Register("url", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			if !ok && value != nil {
				return fmt.Errorf("expected string")
			}
			return nil
		}
		u, err := url.Parse(str)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid URL")
		}
		return nil
	})

	// Phone validator (permissive international pattern)
	r.Register("phone", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			if !ok && value != nil {
				return fmt.Errorf("expected string")
			}
			return nil
		}
		cleaned := regexp.MustCompile(`[^\d]`).ReplaceAllString(str, "")
		if len(cleaned) < 7 || len(cleaned) > 15 {
			return fmt.Errorf("phone number must have 7-15 digits")
		}
		return nil
	})

	// Numeric validator (number, decimal, currency, percent)
	r.Register("numeric", func(value interface{}, config map[string]interface{}) error {
		switch v := value.(type) {
		case nil:
			return nil
		case float64, float32, int, int32, int64:
			return nil
		case string:
			if v == "" {
				return nil
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("expected numeric value")
			}
			return nil
		default:
			return fmt.Errorf("expected numeric value")
		}
	})

	// Strict YYYY-MM-DD date
	r.Register("date", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			if !ok && value != nil {
				return fmt.Errorf("expected date string")
			}
			return nil
		}
		if _, err := time.Parse("2006-01-02", str); err != nil {
			return fmt.Errorf("expected date in YYYY-MM-DD format")
		}
		return nil
	})

	// Strict YYYY-MM-DD HH:MM:SS datetime
	r.Register("datetime", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			if !ok && value != nil {
				return fmt.Errorf("expected datetime string")
			}
			return nil
		}
		if _, err := time.Parse("2006-01-02 15:04:05", str); err != nil {
			return fmt.Errorf("expected datetime in YYYY-MM-DD HH:MM:SS format")
		}
		return nil
	})

	// Option validator: value must equal one existing option value.
	// config["options"] carries the field's active option values.
	r.Register("option", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			if !ok && value != nil {
				return fmt.Errorf("expected string option value")
			}
			return nil
		}
		for _, opt := range optionValues(config) {
			if opt == str {
				return nil
			}
		}
		return fmt.Errorf("'%s' is not a valid option", str)
	})

	// Multi-option validator: value must be an array whose every element is a valid option
	r.Register("multi_option", func(value interface{}, config map[string]interface{}) error {
		if value == nil {
			return nil
		}
		var items []string
		switch v := value.(type) {
		case []string:
			items = v
		case []interface{}:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("expected array of option values")
				}
				items = append(items, s)
			}
		default:
			return fmt.Errorf("expected array of option values")
		}

		allowed := optionValues(config)
		for _, item := range items {
			found := false
			for _, opt := range allowed {
				if opt == item {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("'%s' is not a valid option", item)
			}
		}
		return nil
	})

	// Regex validator driven by config: {"pattern": "...", "message": "..."}
	r.Register("regex", func(value interface{}, config map[string]interface{}) error {
		str, ok := asString(value)
		if !ok || str == "" {
			return nil
		}
		pattern, _ := config["pattern"].(string)
		if pattern == "" {
			return nil
		}
		matched, err := regexp.MatchString(pattern, str)
		if err != nil {
			return fmt.Errorf("invalid pattern: %v", err)
		}
		if !matched {
			if msg, ok := config["message"].(string); ok && msg != "" {
				return fmt.Errorf("%s", msg)
			}
			return fmt.Errorf("invalid format")
		}
		return nil
	})
}
