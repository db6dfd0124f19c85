package sweeper

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
	"github.com/k1zuko/crazyrace-sub000/internal/services"
	"github.com/k1zuko/crazyrace-sub000/internal/ws"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Session{},
		&models.SessionQuestion{},
		&models.SessionOption{},
		&models.Participant{},
		&models.Answer{},
	))
	return db
}

func newSweeper(t *testing.T, db *gorm.DB, clk clockwork.Clock) *Sweeper {
	t.Helper()
	sessions := services.NewSessionService(db, clk)
	return New(db, sessions, ws.NewHub(), clk, time.Second)
}

func TestSweepActivatesExpiredCountdown(t *testing.T) {
	db := setupTestDB(t)
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	countdownStart := clk.Now().Add(-services.CountdownDuration - time.Second)
	session := models.Session{
		HostID:             1,
		GamePin:            "111111",
		Status:             models.SessionStatusWaiting,
		CountdownStartedAt: &countdownStart,
		TotalTimeMinutes:   10,
	}
	require.NoError(t, db.Create(&session).Error)

	newSweeper(t, db, clk).sweep()

	var stored models.Session
	require.NoError(t, db.First(&stored, session.ID).Error)
	assert.Equal(t, models.SessionStatusActive, stored.Status)
	assert.NotNil(t, stored.StartedAt)
	assert.Nil(t, stored.CountdownStartedAt)
}

func TestSweepLeavesRunningCountdownAlone(t *testing.T) {
	db := setupTestDB(t)
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	countdownStart := clk.Now().Add(-2 * time.Second)
	session := models.Session{
		HostID:             1,
		GamePin:            "222222",
		Status:             models.SessionStatusWaiting,
		CountdownStartedAt: &countdownStart,
		TotalTimeMinutes:   10,
	}
	require.NoError(t, db.Create(&session).Error)

	newSweeper(t, db, clk).sweep()

	var stored models.Session
	require.NoError(t, db.First(&stored, session.ID).Error)
	assert.Equal(t, models.SessionStatusWaiting, stored.Status)
	assert.Nil(t, stored.StartedAt)
}

func TestSweepFinishesSessionPastTimeBudget(t *testing.T) {
	db := setupTestDB(t)
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	started := clk.Now().Add(-11 * time.Minute)
	session := models.Session{
		HostID:           1,
		GamePin:          "333333",
		Status:           models.SessionStatusActive,
		StartedAt:        &started,
		TotalTimeMinutes: 10,
	}
	require.NoError(t, db.Create(&session).Error)
	require.NoError(t, db.Create(&models.Participant{
		SessionID: session.ID, PlayerID: "p1", Nickname: "alice", Car: models.CarDefault,
		JoinedAt: started,
	}).Error)

	newSweeper(t, db, clk).sweep()

	var stored models.Session
	require.NoError(t, db.First(&stored, session.ID).Error)
	assert.Equal(t, models.SessionStatusFinished, stored.Status)
	require.NotNil(t, stored.EndedAt)

	var participant models.Participant
	require.NoError(t, db.Where("session_id = ?", session.ID).First(&participant).Error)
	assert.True(t, participant.Completion, "expiry sweeps stragglers to completion")
	require.NotNil(t, participant.FinishedAt)
	assert.True(t, participant.FinishedAt.Equal(*stored.EndedAt))
}

func TestSweepFinishesWhenAllComplete(t *testing.T) {
	db := setupTestDB(t)
	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	started := clk.Now().Add(-time.Minute)
	session := models.Session{
		HostID:           1,
		GamePin:          "444444",
		Status:           models.SessionStatusActive,
		StartedAt:        &started,
		TotalTimeMinutes: 10,
	}
	require.NoError(t, db.Create(&session).Error)
	require.NoError(t, db.Create(&models.Participant{
		SessionID: session.ID, PlayerID: "p1", Nickname: "alice", Car: models.CarDefault,
		Completion: true, JoinedAt: started,
	}).Error)

	newSweeper(t, db, clk).sweep()

	var stored models.Session
	require.NoError(t, db.First(&stored, session.ID).Error)
	assert.Equal(t, models.SessionStatusFinished, stored.Status)
}
