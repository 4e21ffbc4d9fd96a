package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  bool
	}{
		{"simple name", "research_findings", true},
		{"leading underscore", "_findings", true},
		{"digits allowed after first char", "findings_v2", true},
		{"mixed case tail", "findings_V2", true},
		{"empty", "", false},
		{"leading digit", "2findings", false},
		{"leading uppercase", "Findings", false},
		{"hyphen", "research-findings", false},
		{"spaces", "research findings", false},
		{"injection attempt", "findings; DROP TABLE users", false},
		{"max length", strings.Repeat("a", 63), true},
		{"too long", strings.Repeat("a", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidTableName(tt.table))
		})
	}
}

func TestNewFindingStoreRejectsInvalidTableName(t *testing.T) {
	store, err := NewFindingStore(nil, "bad name")
	assert.Error(t, err)
	assert.Nil(t, store)
}
