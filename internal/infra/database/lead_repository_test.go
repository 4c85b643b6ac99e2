package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
	assert.Equal(t, "jane", escapeLike("jane"))
}

func TestAppendArg(t *testing.T) {
	got, err := appendArg[entity.FollowUp](nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	f := entity.FollowUp{ScheduledDate: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)}
	got, err = appendArg(&f)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `[{"scheduled_date":"2024-03-13T00:00:00Z","completed":false,"created_at":"0001-01-01T00:00:00Z"}]`, *got)
}

func TestNonNilSlices(t *testing.T) {
	assert.NotNil(t, nonNilNotes(nil))
	assert.NotNil(t, nonNilFollowUps(nil))
	assert.Equal(t, "x", *nullString("x"))
	assert.Nil(t, nullString(""))
}
