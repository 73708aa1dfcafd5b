package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal"
	"github.com/kataclub/kataclub_server/internal/health"
	"github.com/kataclub/kataclub_server/internal/kata"
	"github.com/kataclub/kataclub_server/internal/keys"
	"github.com/kataclub/kataclub_server/internal/maintenance"
	"github.com/kataclub/kataclub_server/internal/mute"
	"github.com/kataclub/kataclub_server/internal/post"
	"github.com/kataclub/kataclub_server/internal/status"
	"github.com/kataclub/kataclub_server/internal/storage"
	"github.com/kataclub/kataclub_server/internal/user"
	"github.com/kataclub/kataclub_server/internal/websocket"
)

const version = "1.0.0"

func main() {
	// Initialize RSA keys (generate on first run)
	privateKey, publicKey, err := keys.GetOrGenerateRSAKeyPair("files/keys")
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing RSA keys")
		return
	}
	log.Info().Msg("RSA keys initialized successfully")

	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}

	db, err := internal.NewDB(config.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
		return
	}

	backend, err := storage.NewBackend(&config.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage backend")
		return
	}

	userRepository := user.NewSQLUserRepository(db)
	userService := user.NewUserService(userRepository, config.Users, privateKey, publicKey)
	userEndpoints := user.NewEndpoints(userService, publicKey)

	storageRepository := storage.NewRepository(db)
	storageService := storage.NewService(storageRepository, backend, config.Storage.MaxFileSize)
	storageEndpoints := storage.NewEndpoints(storageService)

	kataRepository := kata.NewSQLRepository(db)
	kataService := kata.NewService(kataRepository, storageService)
	kataEndpoints := kata.NewEndpoints(kataService)

	muteRepository := mute.NewSQLRepository(db)
	muteService := mute.NewMuteService(muteRepository)
	muteEndpoints := mute.NewEndpoints(muteService)

	postRepository := post.NewSQLRepository(db)
	postService := post.NewService(postRepository, muteService)
	postEndpoints := post.NewEndpoints(postService)

	healthEndpoints := health.NewEndpoints(version, db)
	statusEndpoints := status.NewEndpoints(version, kataService.Store(), postService.Store())

	// Load the persisted catalogs into the in-memory snapshots before
	// serving requests.
	if err := kataService.Refresh(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Error loading kata catalog")
		return
	}
	if err := postService.Refresh(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Error loading posts")
		return
	}

	hub := websocket.NewHub()
	go hub.Run()

	kataChanges, _ := kataService.Store().Subscribe()
	postChanges, _ := postService.Store().Subscribe()
	go hub.Forward(websocket.EntityKatas, kataChanges)
	go hub.Forward(websocket.EntityPosts, postChanges)

	wsHandler := websocket.NewHandler(hub, userService)

	scheduler := maintenance.NewScheduler(kataService, muteService, config.Maintenance)
	maintenanceEndpoints := maintenance.NewEndpoints(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	requestHandler := internal.NewRequestHandler(config, userEndpoints, kataEndpoints, postEndpoints, muteEndpoints, storageEndpoints, statusEndpoints, healthEndpoints, maintenanceEndpoints, userService, wsHandler)

	log.Info().Str("addr", config.Server.Addr).Msg("Starting server")
	if err := fasthttp.ListenAndServe(config.Server.Addr, requestHandler); err != nil {
		log.Fatal().Err(err).Msg("Error starting server")
	}
}
