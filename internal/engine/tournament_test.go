package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tournament-planner/internal/models"
)

func TestValidateEventOrdering_RejectsOutOfOrderEvents(t *testing.T) {
	timings := models.EventTimings{RegisterStart: 1000, RegisterStop: 500}

	err := validateEventOrdering(timings, map[models.EventName]bool{})

	var conflicting *ConflictingDatesError
	assert.ErrorAs(t, err, &conflicting)
	assert.Contains(t, conflicting.Offenders, models.EventRegisterStart)
}

func TestValidateEventOrdering_NarrowCheckinWindowAutoIgnoresStop(t *testing.T) {
	timings := models.EventTimings{CheckinStart: 1000, CheckinStop: 1030}
	ignored := map[models.EventName]bool{}

	err := validateEventOrdering(timings, ignored)

	assert.NoError(t, err)
	assert.True(t, ignored[models.EventCheckinStop])
}
