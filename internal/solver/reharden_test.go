package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/mealplanner/internal/models"
)

func contains(fs []models.Family, f models.Family) bool {
	for _, g := range fs {
		if g == f {
			return true
		}
	}
	return false
}

func TestRehardenKeepsOnlyNeededFamilies(t *testing.T) {
	demoted := []models.Family{models.FamilyPrepMethodRatio, models.FamilyOrderingRule, models.FamilyUniqueness}
	var tried [][]models.Family
	got, complete, err := reharden(demoted, func(trial []models.Family) (bool, bool, error) {
		tried = append(tried, trial)
		return contains(trial, models.FamilyOrderingRule), false, nil
	})
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []models.Family{models.FamilyOrderingRule}, got)
	assert.Len(t, tried, 3)
}

func TestRehardenHaltedIsIncomplete(t *testing.T) {
	demoted := []models.Family{models.FamilyPrepMethodRatio, models.FamilyOrderingRule}
	calls := 0
	got, complete, err := reharden(demoted, func(trial []models.Family) (bool, bool, error) {
		calls++
		return false, true, nil
	})
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, demoted, got)
	assert.Equal(t, 1, calls)
}

func TestRehardenError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := reharden([]models.Family{models.FamilyPrepMethodRatio}, func([]models.Family) (bool, bool, error) {
		return false, false, boom
	})
	assert.ErrorIs(t, err, boom)
}
