package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

type QuizService struct {
	db *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{db: db}
}

type QuestionInput struct {
	Text     string        `json:"text" binding:"required"`
	ImageURL string        `json:"image_url"`
	Options  []OptionInput `json:"options" binding:"required,min=2"`
}

type OptionInput struct {
	Text      string `json:"text" binding:"required"`
	ImageURL  string `json:"image_url"`
	IsCorrect bool   `json:"is_correct"`
}

func (s *QuizService) ListQuizzes(hostID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.Where("host_id = ?", hostID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Questions.Options").
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// CreateQuiz creates a quiz with its full question set in one transaction.
// Every question must carry exactly one correct option; sessions snapshot
// this invariant at creation and depend on it for answer validation.
func (s *QuizService) CreateQuiz(hostID uint, title string, questions []QuestionInput) (*models.Quiz, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}

	for _, q := range questions {
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return nil, errors.New("each question must have exactly one correct option")
		}
	}

	quiz := models.Quiz{
		HostID: hostID,
		Title:  title,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}
		for i, qi := range questions {
			question := models.Question{
				QuizID:   quiz.ID,
				Text:     qi.Text,
				ImageURL: qi.ImageURL,
				OrderNum: i,
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
			for _, oi := range qi.Options {
				option := models.Option{
					QuestionID: question.ID,
					Text:       oi.Text,
					ImageURL:   oi.ImageURL,
					IsCorrect:  oi.IsCorrect,
				}
				if err := tx.Create(&option).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetQuiz(quiz.ID, hostID)
}

func (s *QuizService) GetQuiz(quizID, hostID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.Where("id = ? AND host_id = ?", quizID, hostID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Preload("Questions.Options").
		First(&quiz).Error
	if err != nil {
		return nil, errors.New("quiz not found")
	}
	return &quiz, nil
}

func (s *QuizService) DeleteQuiz(quizID, hostID uint) error {
	var quiz models.Quiz
	if err := s.db.Where("id = ? AND host_id = ?", quizID, hostID).First(&quiz).Error; err != nil {
		return errors.New("quiz not found")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		tx.Model(&models.Question{}).Where("quiz_id = ?", quizID).Pluck("id", &questionIDs)
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&quiz).Error
	})
}
