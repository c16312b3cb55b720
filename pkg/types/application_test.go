package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("approve")
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, d)
	assert.Equal(t, ApplicationStatusApproved, d.Status())

	d, err = ParseDecision("reject")
	require.NoError(t, err)
	assert.Equal(t, ApplicationStatusRejected, d.Status())

	for _, raw := range []string{"", " approve ", "approve\n", "Approve", "REJECT", "maybe"} {
		_, err := ParseDecision(raw)
		assert.ErrorIs(t, err, ErrInvalidDecision, "%q", raw)
	}
}
