package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{"nil error", nil, ErrorTypeEmptyScope, false},
		{"direct match", EmptyScopef("bucket %s", "2025-01"), ErrorTypeEmptyScope, true},
		{"wrapped with fmt", fmt.Errorf("build: %w", EmptyScopef("no nodes")), ErrorTypeEmptyScope, true},
		{"different type", MalformedRecordf("self loop"), ErrorTypeEmptyScope, false},
		{"plain error", fmt.Errorf("boom"), ErrorTypeInternal, false},
		{"dependency unavailable", DependencyUnavailable(nil, "modularity disabled"), ErrorTypeDependencyUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}

func TestSeverityAndFatal(t *testing.T) {
	assert.False(t, IsFatal(MalformedRecordf("x")))
	assert.False(t, IsFatal(NumericDegeneracyf("x")))
	assert.True(t, IsFatal(Wrap(fmt.Errorf("components failed"), ErrorTypeInternal, SeverityCritical, "all strategies failed")))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", ConfigError("missing table"))))

	assert.Equal(t, SeverityMedium, GetSeverity(EmptyScopef("x")))
	assert.Equal(t, SeverityMedium, GetSeverity(fmt.Errorf("plain")))
	assert.Equal(t, ErrorTypeNumericDegeneracy, GetType(NumericDegeneracyf("x")))
}

func TestDetailedString(t *testing.T) {
	err := DependencyUnavailable(fmt.Errorf("resolution must be > 0"), "modularity partitioner unavailable").
		WithContext("strategy", "modularity")

	s := err.DetailedString()
	assert.Contains(t, s, "[LOW] [DEPENDENCY_UNAVAILABLE]")
	assert.Contains(t, s, "Caused by: resolution must be > 0")
	assert.Contains(t, s, "strategy: modularity")
	assert.Equal(t, "modularity partitioner unavailable: resolution must be > 0", err.Error())
}
