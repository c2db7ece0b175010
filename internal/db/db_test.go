package db_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/db"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))
	return database
}

func TestStepNext(t *testing.T) {
	assert.Equal(t, db.StepAge, db.StepName.Next())
	assert.Equal(t, db.StepBio, db.StepAge.Next())
	assert.Equal(t, db.StepPhoto, db.StepBio.Next())
	assert.Equal(t, db.StepDone, db.StepPhoto.Next())
	assert.Equal(t, db.StepDone, db.StepDone.Next())
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres", "mysql"} {
		d, err := db.Dialector(driver, "dsn")
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}
	_, err := db.Dialector("oracle", "dsn")
	assert.Error(t, err)
}

func TestSeedTestData(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, db.SeedTestData(database, 16, 30))

	var users []db.User
	require.NoError(t, database.Find(&users).Error)
	assert.Len(t, users, 20)
	for _, u := range users {
		assert.Equal(t, db.StepDone, u.Step)
		assert.GreaterOrEqual(t, u.Age, 16)
		assert.LessOrEqual(t, u.Age, 30)
	}

	var matches []db.Match
	require.NoError(t, database.Find(&matches).Error)
	assert.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Less(t, m.UserA, m.UserB)
	}

	// seeding twice must not fail on the unique keys
	require.NoError(t, db.SeedTestData(database, 16, 30))
}
