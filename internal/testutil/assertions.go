// Package testutil provides common test utilities and assertions for SDK tests
package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stdexport/stdexport-sdk/boundary"
	"github.com/stdexport/stdexport-sdk/domain/entities"
)

// AssertCode asserts that a raw result slot holds the expected code.
func AssertCode(t *testing.T, expected boundary.Code, actual uint32, msgAndArgs ...interface{}) {
	t.Helper()
	got := boundary.CodeFromWord(actual)
	assert.Equal(t, expected, got, msgAndArgs...)
}

// AssertResult asserts that a raw result slot holds the expected signed value.
func AssertResult(t *testing.T, expected int32, actual uint32, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, int32(actual), msgAndArgs...)
}

// AssertReportPasses asserts that a report has no error findings and prints
// them when it does.
func AssertReportPasses(t *testing.T, r *entities.Report) {
	t.Helper()
	require.NotNil(t, r)
	for _, f := range r.Errors() {
		t.Logf("finding: %s", f)
	}
	assert.True(t, r.Passed(), "report for %s should pass", r.Subject)
}

// AssertHasFinding asserts that the report contains a finding for rule and
// returns it.
func AssertHasFinding(t *testing.T, r *entities.Report, rule string) entities.Finding {
	t.Helper()
	require.NotNil(t, r)
	for _, f := range r.Findings {
		if f.Rule == rule {
			return f
		}
	}
	var rules []string
	for _, f := range r.Findings {
		rules = append(rules, f.Rule)
	}
	require.Failf(t, "missing finding", "rule %q not in %v", rule, rules)
	return entities.Finding{}
}
