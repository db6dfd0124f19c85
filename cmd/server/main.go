package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/k1zuko/crazyrace-sub000/internal/config"
	"github.com/k1zuko/crazyrace-sub000/internal/database"
	"github.com/k1zuko/crazyrace-sub000/internal/handlers"
	"github.com/k1zuko/crazyrace-sub000/internal/middleware"
	"github.com/k1zuko/crazyrace-sub000/internal/services"
	"github.com/k1zuko/crazyrace-sub000/internal/sweeper"
	"github.com/k1zuko/crazyrace-sub000/internal/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	clk := clockwork.NewRealClock()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()

	authService := services.NewAuthService(db, cfg.JWTSecret, clk)
	quizService := services.NewQuizService(db)
	sessionService := services.NewSessionService(db, clk)
	joinService := services.NewJoinService(db, clk)
	answerService := services.NewAnswerService(db, clk, sessionService)
	rankService := services.NewRankService(db)

	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)
	sessionHandler := handlers.NewSessionHandler(sessionService, rankService, hub, cfg.MaxPlayers)
	playHandler := handlers.NewPlayHandler(joinService, answerService, sessionService, rankService, hub)
	wsHandler := handlers.NewWSHandler(hub)
	timeHandler := handlers.NewTimeHandler(clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep := sweeper.New(db, sessionService, hub, clk, time.Duration(cfg.SweepInterval)*time.Second)
	go sweep.Run(ctx)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws/session/:id", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		api.GET("/time", timeHandler.ServerTime)

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		quizzes := api.Group("/quizzes")
		quizzes.Use(middleware.JWTAuth(authService))
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)
			quizzes.GET("/:id", quizHandler.GetQuiz)
			quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", middleware.JWTAuth(authService), sessionHandler.ListSessions)
			sessions.POST("", middleware.JWTAuth(authService), sessionHandler.CreateSession)
			sessions.GET("/:id", middleware.JWTAuth(authService), sessionHandler.GetSession)
			sessions.POST("/:id/countdown", middleware.JWTAuth(authService), sessionHandler.StartCountdown)
			sessions.POST("/:id/finish", middleware.JWTAuth(authService), sessionHandler.Finish)
			sessions.DELETE("/:id/participants/:pid", middleware.JWTAuth(authService), sessionHandler.KickParticipant)

			// activation races between all countdown watchers, host or player
			sessions.POST("/:id/activate", sessionHandler.Activate)
			sessions.GET("/:id/leaderboard", sessionHandler.GetLeaderboard)
		}

		play := api.Group("/play")
		{
			play.POST("/join", playHandler.Join)
			play.GET("/questions", playHandler.Questions)
			play.POST("/answer", playHandler.Answer)
			play.POST("/answers/batch", playHandler.AnswerBatch)
			play.POST("/racing/done", playHandler.RacingDone)
			play.PUT("/car", playHandler.SetCar)
			play.GET("/state", playHandler.State)
		}
	}

	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
