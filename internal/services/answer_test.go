package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

func newAnswerService(t *testing.T) (*AnswerService, *models.Session, *models.Participant, []models.SessionQuestion) {
	t.Helper()

	db := setupTestDB(t)
	clk := testClock()
	session := seedSession(t, db, models.SessionStatusActive, 6)
	participant := seedParticipant(t, db, session.ID, "player-1", "alice")
	questions := sessionQuestions(t, db, session.ID)

	svc := NewAnswerService(db, clk, NewSessionService(db, clk))
	return svc, session, participant, questions
}

func TestSubmitAnswerCorrectness(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	// correct option is index 1
	result, err := svc.SubmitAnswer(SubmitAnswerInput{
		ParticipantID:    participant.ID,
		QuestionID:       questions[0].ID,
		AnswerIndex:      1,
		ScorePerQuestion: 100,
		NextIndex:        1,
	})
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 1, result.CorrectIndex)
	assert.Equal(t, 100, result.Score)

	// wrong option never scores
	result, err = svc.SubmitAnswer(SubmitAnswerInput{
		ParticipantID:    participant.ID,
		QuestionID:       questions[1].ID,
		AnswerIndex:      2,
		ScorePerQuestion: 100,
		NextIndex:        2,
	})
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, 100, result.Score)

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.Equal(t, 100, stored.Score)
	assert.Equal(t, 1, stored.Correct)
	assert.Equal(t, 2, stored.CurrentQuestion)
}

func TestSubmitAnswerMonotonicProgress(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.SubmitAnswer(SubmitAnswerInput{
			ParticipantID:    participant.ID,
			QuestionID:       questions[i].ID,
			AnswerIndex:      1,
			ScorePerQuestion: 50,
			NextIndex:        i + 1,
			IsRacing:         ShouldRace(i+1, false),
		})
		require.NoError(t, err)

		var stored models.Participant
		require.NoError(t, svc.db.First(&stored, participant.ID).Error)
		var answers int64
		svc.db.Model(&models.Answer{}).Where("participant_id = ?", participant.ID).Count(&answers)

		assert.Equal(t, i+1, stored.CurrentQuestion)
		assert.EqualValues(t, i+1, answers, "answer log must track the progress pointer")
	}
}

func TestSubmitAnswerRetryIsIdempotent(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	in := SubmitAnswerInput{
		ParticipantID:    participant.ID,
		QuestionID:       questions[0].ID,
		AnswerIndex:      1,
		ScorePerQuestion: 100,
		NextIndex:        1,
	}

	first, err := svc.SubmitAnswer(in)
	require.NoError(t, err)

	// client timed out and retries the exact call
	second, err := svc.SubmitAnswer(in)
	require.NoError(t, err)
	assert.Equal(t, first.IsCorrect, second.IsCorrect)
	assert.Equal(t, first.CorrectIndex, second.CorrectIndex)

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.Equal(t, 100, stored.Score, "retry must not double-award")
	assert.Equal(t, 1, stored.CurrentQuestion)

	var answers int64
	svc.db.Model(&models.Answer{}).Where("participant_id = ?", participant.ID).Count(&answers)
	assert.EqualValues(t, 1, answers)
}

func TestSubmitAnswerFlushesPendingBuffer(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	// first answer timed out client-side: buffered locally, never sent.
	// The second submission carries it as pending in the same atomic call.
	result, err := svc.SubmitAnswer(SubmitAnswerInput{
		ParticipantID:    participant.ID,
		QuestionID:       questions[1].ID,
		AnswerIndex:      1,
		ScorePerQuestion: 100,
		NextIndex:        2,
		Pending: []PendingAnswer{
			{QuestionID: questions[0].ID, SelectedIndex: 1, Correct: true},
		},
		PendingScore:   100,
		PendingCorrect: 1,
	})
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)

	var answers []models.Answer
	require.NoError(t, svc.db.Where("participant_id = ?", participant.ID).
		Order("id ASC").Find(&answers).Error)
	require.Len(t, answers, 2, "no answer lost, none duplicated")
	assert.Equal(t, questions[0].ID, answers[0].QuestionID, "pending flushed in original order")
	assert.Equal(t, questions[1].ID, answers[1].QuestionID)

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.Equal(t, 200, stored.Score)
	assert.Equal(t, 2, stored.Correct)
	assert.Equal(t, 2, stored.CurrentQuestion)
}

func TestPendingAnswerCorrectnessIsReverified(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	// client claims its wrong buffered answer was correct
	_, err := svc.SubmitAnswer(SubmitAnswerInput{
		ParticipantID:    participant.ID,
		QuestionID:       questions[1].ID,
		AnswerIndex:      1,
		ScorePerQuestion: 100,
		NextIndex:        2,
		Pending: []PendingAnswer{
			{QuestionID: questions[0].ID, SelectedIndex: 0, Correct: true},
		},
	})
	require.NoError(t, err)

	var stored models.Answer
	require.NoError(t, svc.db.Where("participant_id = ? AND question_id = ?",
		participant.ID, questions[0].ID).First(&stored).Error)
	assert.False(t, stored.IsCorrect, "stored flag is the authoritative one")
}

func TestRacingDoesNotAdvanceQuestionIndex(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.SubmitAnswer(SubmitAnswerInput{
			ParticipantID:    participant.ID,
			QuestionID:       questions[i].ID,
			AnswerIndex:      1,
			ScorePerQuestion: 50,
			NextIndex:        i + 1,
			IsRacing:         ShouldRace(i+1, false),
		})
		require.NoError(t, err)
	}

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.True(t, stored.Racing, "third answered question enters racing mode")
	assert.Equal(t, 3, stored.CurrentQuestion)

	after, err := svc.StopRacing(participant.ID)
	require.NoError(t, err)
	assert.False(t, after.Racing)
	assert.Equal(t, 3, after.CurrentQuestion, "racing consumes no question")
}

func TestShouldRace(t *testing.T) {
	assert.False(t, ShouldRace(0, false))
	assert.False(t, ShouldRace(1, false))
	assert.False(t, ShouldRace(2, false))
	assert.True(t, ShouldRace(3, false))
	assert.False(t, ShouldRace(4, false))
	assert.True(t, ShouldRace(6, false))
	assert.False(t, ShouldRace(6, true), "no racing on the final answer")
}

func TestSubmitAnswerCompletionFinishesSession(t *testing.T) {
	svc, session, participant, questions := newAnswerService(t)

	for i := 0; i < 6; i++ {
		result, err := svc.SubmitAnswer(SubmitAnswerInput{
			ParticipantID:    participant.ID,
			QuestionID:       questions[i].ID,
			AnswerIndex:      1,
			ScorePerQuestion: 50,
			NextIndex:        i + 1,
			IsFinished:       i == 5,
			IsRacing:         ShouldRace(i+1, i == 5),
		})
		require.NoError(t, err)
		if i == 5 {
			assert.True(t, result.SessionFinished, "sole participant done, session auto-finishes")
		}
	}

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.True(t, stored.Completion)
	assert.False(t, stored.Racing)
	assert.NotNil(t, stored.FinishedAt)

	var storedSession models.Session
	require.NoError(t, svc.db.First(&storedSession, session.ID).Error)
	assert.Equal(t, models.SessionStatusFinished, storedSession.Status)
}

func TestSubmitBatchEmptyIsPureCompletionFlush(t *testing.T) {
	svc, _, participant, _ := newAnswerService(t)

	err := svc.SubmitBatch(SubmitBatchInput{
		ParticipantID: participant.ID,
		NextIndex:     0,
		IsFinished:    true,
	})
	require.NoError(t, err)

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.True(t, stored.Completion)
	assert.NotNil(t, stored.FinishedAt)
	assert.Equal(t, 0, stored.CurrentQuestion)
}

func TestSubmitBatchAppliesDeltasOnce(t *testing.T) {
	svc, _, participant, questions := newAnswerService(t)

	in := SubmitBatchInput{
		ParticipantID: participant.ID,
		Answers: []PendingAnswer{
			{QuestionID: questions[0].ID, SelectedIndex: 1, Correct: true},
			{QuestionID: questions[1].ID, SelectedIndex: 0, Correct: false},
		},
		ScoreAdd:   100,
		CorrectAdd: 1,
		NextIndex:  2,
	}

	require.NoError(t, svc.SubmitBatch(in))
	// retried after a timeout the client could not distinguish from failure
	require.NoError(t, svc.SubmitBatch(in))

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.Equal(t, 100, stored.Score)
	assert.Equal(t, 1, stored.Correct)
	assert.Equal(t, 2, stored.CurrentQuestion)

	var answers int64
	svc.db.Model(&models.Answer{}).Where("participant_id = ?", participant.ID).Count(&answers)
	assert.EqualValues(t, 2, answers)
}

func TestCompletionIsTerminal(t *testing.T) {
	svc, _, participant, _ := newAnswerService(t)

	require.NoError(t, svc.SubmitBatch(SubmitBatchInput{
		ParticipantID: participant.ID,
		IsFinished:    true,
	}))

	// a late batch cannot un-complete or re-enter racing
	require.NoError(t, svc.SubmitBatch(SubmitBatchInput{
		ParticipantID: participant.ID,
		IsFinished:    false,
		IsRacing:      true,
	}))

	var stored models.Participant
	require.NoError(t, svc.db.First(&stored, participant.ID).Error)
	assert.True(t, stored.Completion)
	assert.False(t, stored.Racing)
}

func TestSetCar(t *testing.T) {
	svc, session, participant, _ := newAnswerService(t)

	updated, err := svc.SetCar(participant.ID, models.CarBlue)
	require.NoError(t, err)
	assert.Equal(t, models.CarBlue, updated.Car)

	_, err = svc.SetCar(participant.ID, "tank")
	assert.Error(t, err)

	require.NoError(t, svc.db.Model(&models.Session{}).Where("id = ?", session.ID).
		Update("status", models.SessionStatusFinished).Error)
	_, err = svc.SetCar(participant.ID, models.CarGreen)
	assert.Error(t, err, "car is locked once the session is finished")
}
