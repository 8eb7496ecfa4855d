package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDConversions(t *testing.T) {
	assert.False(t, ToUUID(nil).Valid)
	assert.Nil(t, FromUUID(pgtype.UUID{}))

	id := uuid.New()
	back := FromUUID(ToUUID(&id))
	require.NotNil(t, back)
	assert.Equal(t, id, *back)
}

func TestToDate_DropsTimeOfDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	evening := time.Date(2024, 3, 9, 22, 30, 0, 0, ny)

	d := ToDate(&evening)

	require.True(t, d.Valid)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), d.Time)
	assert.False(t, ToDate(nil).Valid)
}

func TestFromDate(t *testing.T) {
	assert.Nil(t, FromDate(pgtype.Date{}))

	got := FromDate(pgtype.Date{Time: time.Date(2024, 3, 9, 0, 0, 0, 0, time.Local), Valid: true})

	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), *got)
}

func TestInt2Conversions(t *testing.T) {
	hour := 23
	back := FromInt2(ToInt2(&hour))

	require.NotNil(t, back)
	assert.Equal(t, 23, *back)
	assert.Nil(t, FromInt2(ToInt2(nil)))
}

func TestNullableScalars(t *testing.T) {
	assert.Nil(t, FromTimestamptz(pgtype.Timestamptz{}))
	assert.Equal(t, "", FromString(pgtype.Text{}))
	assert.Equal(t, "Queue A", FromString(pgtype.Text{String: "Queue A", Valid: true}))
}
