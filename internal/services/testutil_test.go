package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
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
		&models.Host{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Session{},
		&models.SessionQuestion{},
		&models.SessionOption{},
		&models.Participant{},
		&models.Answer{},
	))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_live_pin ON sessions (game_pin) WHERE status <> 'finished'",
	).Error)
	return db
}

func testClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

// seedSession inserts a session with n three-option questions; the correct
// option is always index 1.
func seedSession(t *testing.T, db *gorm.DB, status string, n int) *models.Session {
	t.Helper()

	session := models.Session{
		HostID:           1,
		QuizID:           1,
		GamePin:          "123456",
		Status:           status,
		QuestionLimit:    n,
		TotalTimeMinutes: 10,
		Difficulty:       models.DifficultyNormal,
		CreatedAt:        time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
	}
	if status != models.SessionStatusWaiting {
		started := time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC)
		session.StartedAt = &started
	}
	require.NoError(t, db.Create(&session).Error)

	for i := 0; i < n; i++ {
		q := models.SessionQuestion{
			SessionID:    session.ID,
			OrderNum:     i,
			Text:         fmt.Sprintf("question %d", i+1),
			CorrectIndex: 1,
		}
		require.NoError(t, db.Create(&q).Error)
		for oi := 0; oi < 3; oi++ {
			require.NoError(t, db.Create(&models.SessionOption{
				QuestionID: q.ID,
				OrderNum:   oi,
				Text:       fmt.Sprintf("option %d", oi),
			}).Error)
		}
	}
	return &session
}

func seedParticipant(t *testing.T, db *gorm.DB, sessionID uint, playerID, nickname string) *models.Participant {
	t.Helper()

	p := models.Participant{
		SessionID: sessionID,
		PlayerID:  playerID,
		Nickname:  nickname,
		Car:       models.CarDefault,
		JoinedAt:  time.Date(2025, 6, 1, 11, 10, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func sessionQuestions(t *testing.T, db *gorm.DB, sessionID uint) []models.SessionQuestion {
	t.Helper()

	var questions []models.SessionQuestion
	require.NoError(t, db.Where("session_id = ?", sessionID).
		Order("order_num ASC").Find(&questions).Error)
	return questions
}
