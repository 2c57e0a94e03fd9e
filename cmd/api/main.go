package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ppob-backend/internal/auth"
	"ppob-backend/internal/bootstrap"
	"ppob-backend/internal/config"
	"ppob-backend/internal/handlers"
	"ppob-backend/internal/media"
	"ppob-backend/internal/routes"
	"ppob-backend/internal/worker"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Connect DB / Firestore + katalog
	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}
	defer infra.Close()

	// 3. Order engine + worker fulfillment
	svc, err := infra.NewOrderService(ctx, cfg)
	if err != nil {
		log.Fatalf("Startup error: %v", err)
	}
	dispatcher := worker.NewDispatcher(svc, infra.Store, worker.Config{
		Workers:       cfg.Fulfillment.Workers,
		QueueSize:     cfg.Fulfillment.QueueSize,
		SweepInterval: cfg.Fulfillment.SweepInterval,
	})
	svc.SetScheduler(dispatcher)

	// 4. Identity provider
	deps := routes.Deps{
		Env:         cfg.Env,
		Store:       infra.Store,
		Catalog:     infra.Catalog,
		Orders:      svc,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit.RPS,
		RateBurst:   cfg.RateLimit.Burst,
	}
	switch cfg.IdentityProvider {
	case "local":
		jwtVerifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL)
		deps.Verifier = jwtVerifier
		deps.Local = auth.NewLocalDirectory(infra.Gorm, infra.Store, jwtVerifier)
	default:
		client, err := infra.Firebase.Auth(ctx)
		if err != nil {
			log.Fatalf("Firebase auth error: %v", err)
		}
		deps.Verifier = auth.NewFirebaseVerifier(client)
	}

	// 5. Object storage (opsional)
	if cfg.R2.Bucket != "" {
		client, err := media.NewR2Client(ctx, media.R2Config(cfg.R2))
		if err != nil {
			log.Fatalf("R2 error: %v", err)
		}
		deps.Uploader = media.NewUploader(client, cfg.R2.Bucket, cfg.R2.PublicURL)
	} else {
		log.Println("Warning: R2_BUCKET_NAME kosong, endpoint upload dinonaktifkan")
	}

	// 6. Init Router
	r := gin.Default()
	routes.SetupRoutes(r, deps)
	r.GET("/ping", func(c *gin.Context) {
		utils.APIResponse(c, http.StatusOK, true, "Server OK!", nil)
	})
	r.NoRoute(handlers.NotFound)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Run Server + worker
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Println("Server berjalan di port " + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[Shutdown] menghentikan server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server error: %v", err)
	}
	log.Println("[Shutdown] selesai")
}
