package main

import (
	"os"

	"github.com/Noquela/duat-server/internal/api"
	"github.com/Noquela/duat-server/internal/config"
	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/service"
	"github.com/Noquela/duat-server/internal/session"
	"github.com/Noquela/duat-server/internal/version"

	"github.com/gin-gonic/gin"
)

func main() {
	checkEnvVars([]string{constants.EnvSessionSecret, constants.EnvGoogleClientID, constants.EnvGoogleClientSecret})

	env, err := config.ParseEnv()
	if err != nil {
		logging.Fatal("Failed to read environment", err, nil)
	}
	cfg := loadConfigOrExit(env.ConfigPath)
	if env.Address != "" {
		cfg.ServerAddress = env.Address
	}
	encounters := loadEncountersOrExit(env.EncountersDir, cfg)
	repo := createRepositoryOrExit(env.DatabasePath)

	runtime := service.Runtime{
		Manager:      session.NewManager(),
		Encounters:   encounters,
		Resolver:     service.NewJournalResolver(repo),
		TickInterval: cfg.TickInterval,
	}
	handler := api.NewSessionHandler(repo, runtime)
	authHandler := api.NewAuthHandler(repo)

	startStaleLobbyScanner(repo, cfg.WaitingTTL)

	router := gin.Default()

	apiRoutes := router.Group(constants.RouteAPIPrefix)
	{
		// Public endpoints
		apiRoutes.GET(constants.RouteEncounters, handler.ListEncounters)
		apiRoutes.GET(constants.RouteSessions, handler.ListPublicSessions)
		apiRoutes.GET(constants.RouteLeaderboard, handler.ListLeaderboard)
		apiRoutes.GET(constants.RouteVersion, api.Version)

		// Authenticated endpoints
		protected := apiRoutes.Group("")
		protected.Use(api.AuthRequired())

		protected.GET(constants.RoutePlayerStats, handler.GetPlayerStats)
		protected.POST(constants.RoutePlayerStats, handler.UpdatePlayerProfile)
		protected.POST(constants.RouteSessions, handler.CreateSession)
		protected.POST(constants.RouteSessionsJoin, handler.JoinSession)
		protected.GET(constants.RouteSessionByID, handler.GetSession)
		protected.GET(constants.RouteSessionJournal, handler.GetSessionJournal)
		protected.POST(constants.RouteSessionStart, handler.StartSession)
		protected.POST(constants.RouteSessionLeave, handler.LeaveSession)
		protected.POST(constants.RouteSessionActions, handler.EnqueueAction)
		protected.DELETE(constants.RouteSessionActions, handler.DequeueActions)
		protected.POST(constants.RouteSessionReactions, handler.EnqueueReaction)
		protected.GET(constants.RouteSessionStream, handler.StreamSession)
	}

	router.POST(constants.RouteAuthGoogleCallBack, authHandler.GoogleOAuthCallback)
	router.GET(constants.RouteAuthMe, authHandler.Me)
	router.POST(constants.RouteAuthLogout, authHandler.Logout)

	addr := cfg.ServerAddress
	logging.Info("Server started", logging.Fields{
		constants.LogFieldAddr:    addr,
		constants.LogFieldVersion: version.Short(),
	})
	if err := router.Run(addr); err != nil {
		logging.Fatal("Failed to start server", err, nil)
	}
}

func checkEnvVars(vars []string) {
	for _, v := range vars {
		if os.Getenv(v) == "" {
			logging.Fatal("Required environment variable not set", nil, logging.Fields{"var": v})
		}
	}
}
