package universe

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigError is a fatal configuration problem; the run aborts before any fetch
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// IsConfigError reports whether err is (or wraps) a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 에러 메시지에 YAML 키 이름 사용
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks tag constraints and cross-field rules
// 실패 시 *ConfigError 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if cfg == nil {
		return &ConfigError{Field: "config", Message: "required"}
	}

	if err := validate.Struct(cfg); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return fieldError(ves[0])
		}
		return &ConfigError{Field: "config", Message: err.Error()}
	}

	// === Cross-field ===
	if cfg.Quality.MinPrice >= cfg.Quality.MaxPrice {
		return &ConfigError{Field: "quality.min_price", Message: "must be below quality.max_price"}
	}
	if cfg.Fetch.CalendarDays < cfg.Fetch.LookbackDays {
		return &ConfigError{Field: "fetch.calendar_days", Message: "must cover at least fetch.lookback_days"}
	}
	if cfg.Fetch.MaxRetryDelay > 0 && cfg.Fetch.RetryDelay > cfg.Fetch.MaxRetryDelay {
		return &ConfigError{Field: "fetch.retry_delay", Message: "exceeds fetch.max_retry_delay"}
	}

	return nil
}

func fieldError(fe validator.FieldError) *ConfigError {
	// Namespace: "Config.fetch.max_retries" → "fetch.max_retries"
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "required"
	case "min":
		msg = fmt.Sprintf("must have at least %s entries", fe.Param())
	case "unique":
		msg = "contains duplicates"
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		msg = fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		msg = fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		msg = fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		msg = fmt.Sprintf("failed validation: %s", fe.Tag())
	}
	return &ConfigError{Field: field, Message: msg}
}
