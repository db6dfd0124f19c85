package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

// TokenTTL is how long an issued host token stays valid.
const TokenTTL = 24 * time.Hour

type AuthService struct {
	db        *gorm.DB
	clock     clockwork.Clock
	jwtSecret []byte
}

func NewAuthService(db *gorm.DB, jwtSecret string, clk clockwork.Clock) *AuthService {
	return &AuthService{db: db, clock: clk, jwtSecret: []byte(jwtSecret)}
}

// Register creates a host account and returns a signed token. The unique
// index on username settles concurrent registrations; the losing insert maps
// to ErrUsernameTaken.
func (s *AuthService) Register(username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	host := models.Host{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(&host).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrUsernameTaken
		}
		return "", err
	}

	return s.GenerateToken(host.ID)
}

// Login verifies the password and returns a fresh token. Unknown usernames
// and wrong passwords collapse into one error so the response does not leak
// which accounts exist.
func (s *AuthService) Login(username, password string) (string, error) {
	var host models.Host
	if err := s.db.Where("username = ?", username).First(&host).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(host.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.GenerateToken(host.ID)
}

func (s *AuthService) GenerateToken(hostID uint) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"host_id": hostID,
		"exp":     now.Add(TokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken checks signature and expiry and returns the host ID the
// token was issued for.
func (s *AuthService) ValidateToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}

	hostID, ok := claims["host_id"].(float64)
	if !ok {
		return 0, errors.New("invalid host_id in token")
	}

	return uint(hostID), nil
}
