package msgbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Ordering(t *testing.T) {
	for i := 0; i < len(Priorities)-1; i++ {
		assert.True(t, Priorities[i].IsHigherThan(Priorities[i+1]), "%s > %s", Priorities[i], Priorities[i+1])
		assert.False(t, Priorities[i+1].IsHigherThan(Priorities[i]))
	}
	assert.False(t, PriorityNormal.IsHigherThan(PriorityNormal))
	assert.Equal(t, -100, PriorityVerification.Rank())
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p.String())
	}
	assert.False(t, Priority(5).Valid())
	assert.Equal(t, "priority(5)", Priority(5).String())
}

func TestParsePriority(t *testing.T) {
	tests := map[string]Priority{
		"higher":       PriorityHigher,
		"HIGH":         PriorityHigh,
		" Normal ":     PriorityNormal,
		"":             PriorityNormal,
		"low":          PriorityLow,
		"Verification": PriorityVerification,
	}
	for in, want := range tests {
		got, err := ParsePriority(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePriority("urgent")
	require.Error(t, err)
}
