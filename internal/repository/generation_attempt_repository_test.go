package repository

import (
	"quizforge_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupAttemptDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// in-memory sqlite: every connection is a separate database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.GenerationAttempt{}))
	return db
}

func localDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestFindByUserAndDayMissingRecord(t *testing.T) {
	repo := NewGenerationAttemptRepository(setupAttemptDB(t))

	rec, err := repo.FindByUserAndDay(1, localDay(2026, time.August, 29))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestIncrementWithCapCreatesFirstAttempt(t *testing.T) {
	repo := NewGenerationAttemptRepository(setupAttemptDB(t))
	day := localDay(2026, time.August, 29)
	now := day.Add(9 * time.Hour)

	charged, err := repo.IncrementWithCap(1, day, 10, now)
	require.NoError(t, err)
	assert.True(t, charged)

	rec, err := repo.FindByUserAndDay(1, day)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.AttemptsUsed)
	assert.Equal(t, now.Unix(), rec.LastAttemptAt.Unix())
}

func TestIncrementWithCapStopsAtLimit(t *testing.T) {
	repo := NewGenerationAttemptRepository(setupAttemptDB(t))
	day := localDay(2026, time.August, 29)

	for i := 0; i < 3; i++ {
		charged, err := repo.IncrementWithCap(1, day, 3, day.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.True(t, charged, "attempt %d should be charged", i+1)
	}

	charged, err := repo.IncrementWithCap(1, day, 3, day.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, charged)

	rec, err := repo.FindByUserAndDay(1, day)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.AttemptsUsed)
}

func TestIncrementWithCapDaysAreIndependent(t *testing.T) {
	repo := NewGenerationAttemptRepository(setupAttemptDB(t))
	monday := localDay(2026, time.August, 24)
	tuesday := localDay(2026, time.August, 25)

	charged, err := repo.IncrementWithCap(1, monday, 1, monday)
	require.NoError(t, err)
	assert.True(t, charged)

	charged, err = repo.IncrementWithCap(1, monday, 1, monday)
	require.NoError(t, err)
	assert.False(t, charged, "monday is at cap")

	charged, err = repo.IncrementWithCap(1, tuesday, 1, tuesday)
	require.NoError(t, err)
	assert.True(t, charged, "a new day starts from zero")
}

func TestIncrementWithCapUsersAreIndependent(t *testing.T) {
	repo := NewGenerationAttemptRepository(setupAttemptDB(t))
	day := localDay(2026, time.August, 29)

	charged, err := repo.IncrementWithCap(1, day, 1, day)
	require.NoError(t, err)
	assert.True(t, charged)

	charged, err = repo.IncrementWithCap(2, day, 1, day)
	require.NoError(t, err)
	assert.True(t, charged)
}

func TestCountSinceSumsAttempts(t *testing.T) {
	repo := NewGenerationAttemptRepository(setupAttemptDB(t))

	days := []time.Time{
		localDay(2026, time.August, 27),
		localDay(2026, time.August, 28),
		localDay(2026, time.August, 29),
	}
	charges := []int{2, 3, 1}
	for i, day := range days {
		for j := 0; j < charges[i]; j++ {
			charged, err := repo.IncrementWithCap(1, day, 10, day)
			require.NoError(t, err)
			require.True(t, charged)
		}
	}

	total, err := repo.CountSince(1, days[1])
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	total, err = repo.CountSince(1, days[0])
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}
