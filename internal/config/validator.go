package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/perrrseus/OpenSaga/internal/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their config key rather than the Go field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Err returns nil when valid, otherwise a critical config error carrying the report
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.TrimSpace(vr.Error()))
}

// Validate checks struct constraints, then the cross-field rules the tags
// cannot express. Conditions the engine recovers from are warnings.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			result.AddError("%v", err)
			return result
		}
		for _, fe := range verrs {
			result.AddError("%s: %s", fieldPath(fe.Namespace()), describe(fe))
		}
	}

	c.validateCommunity(result)
	c.validateDedup(result)
	c.validateTemporal(result)
	return result
}

func (c *Config) validateCommunity(result *ValidationResult) {
	if c.Community.Strategy != "modularity" {
		return
	}
	if c.Community.Resolution <= 0 {
		result.AddWarning("community.resolution is %g; modularity is unavailable and connected components will be used",
			c.Community.Resolution)
	}
	if c.Community.MaxPasses <= 0 {
		result.AddWarning("community.max_passes is %d; modularity is unavailable and connected components will be used",
			c.Community.MaxPasses)
	}
}

func (c *Config) validateDedup(result *ValidationResult) {
	if c.Dedup.ClampMax > 0 && c.Dedup.ClampMax < 1 {
		result.AddWarning("dedup.clamp_max %g is below 1; most canonical strengths will be clamped", c.Dedup.ClampMax)
	}
}

func (c *Config) validateTemporal(result *ValidationResult) {
	if c.Temporal.Workers > 1 && c.Cache.Type == "bolt" {
		result.AddWarning("temporal.workers > 1 with a bolt cache serializes cache writes")
	}
}

// fieldPath strips the root type name: "Config.analysis.damping" -> "analysis.damping"
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("required when %s", strings.Replace(fe.Param(), " ", " is ", 1))
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("must be %s %s, got %v", map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}[fe.Tag()], fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
