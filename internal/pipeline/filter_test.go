package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattwise/internal"
)

func filterFixture() []internal.CanonicalPlan {
	return []internal.CanonicalPlan{
		{Provider: "A", PlanName: "Fixed", RateType: internal.RateFixed, TransparencyScore: 90, TermMonths: 12},
		{Provider: "B", PlanName: "Prepaid", RateType: internal.RateFixed, IsPrepaid: true, TransparencyScore: 90, TermMonths: 12},
		{Provider: "C", PlanName: "Variable", RateType: internal.RateVariable, TransparencyScore: 85, TermMonths: 1,
			Warnings: []internal.Warning{internal.WarnVariableRate}},
	}
}

func TestPublishFilterEmptyKeepsAll(t *testing.T) {
	f, err := NewPublishFilter("")
	require.NoError(t, err)
	out, err := f.Apply(filterFixture())
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestPublishFilterExpression(t *testing.T) {
	f, err := NewPublishFilter(`rate_type == "fixed" && !is_prepaid && !is_tou`)
	require.NoError(t, err)
	out, err := f.Apply(filterFixture())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Fixed", out[0].PlanName)

	f, err = NewPublishFilter(`!("variable_rate" in warnings) && term_months >= 12 && transparency_score > 80`)
	require.NoError(t, err)
	out, err = f.Apply(filterFixture())
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestPublishFilterRejectsBadExpressions(t *testing.T) {
	_, err := NewPublishFilter(`rate_type ==`)
	assert.Error(t, err)
	_, err = NewPublishFilter(`weighted_rate + 1.0`)
	assert.Error(t, err)
	_, err = NewPublishFilter(`unknown_field == 1`)
	assert.Error(t, err)
}
