package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PulseLoop/internal/config"
	"PulseLoop/internal/handler"
	"PulseLoop/internal/middleware"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/realtime"
	"PulseLoop/internal/repository/rdb"
	"PulseLoop/internal/repository/redis"
	"PulseLoop/internal/router"
	"PulseLoop/internal/service"
	"PulseLoop/internal/storage"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	config.LoadDotEnvs()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	pkg.InitLogger(cfg.Env, cfg.LogLevel)

	db, err := rdb.Open(cfg.DB)
	if err != nil {
		pkg.Log.WithError(err).Fatal("connect database failed")
	}
	// 自动建表
	if err = rdb.Migrate(db); err != nil {
		pkg.Log.WithError(err).Fatal("migrate failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 未配置 redis 时单点登录、验证码和限流都关闭
	var (
		rdbClient *goredis.Client
		sessions  service.SessionStore
		codes     service.CodeStore
	)
	if cfg.Redis.Addr != "" {
		rdbClient, err = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			pkg.Log.WithError(err).Fatal("connect redis failed")
		}
		defer rdbClient.Close()
		sessions = &redis.SessionRepository{Client: rdbClient, TTL: cfg.JWT.AccessTTL}
		codes = &redis.CodeRepository{Client: rdbClient}
	} else {
		pkg.Log.Warn("REDIS_ADDR not set, sessions and rate limiting disabled")
	}

	var store storage.Storage
	if cfg.Storage.Driver == "s3" {
		store, err = storage.NewS3Storage(ctx, cfg.Storage)
	} else {
		store, err = storage.NewLocalStorage(cfg.Storage.UploadDir)
	}
	if err != nil {
		pkg.Log.WithError(err).Fatal("init storage failed")
	}

	mailer := pkg.NewMailer(pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	hub := realtime.NewHub()
	var pusher service.Pusher = hub
	if rdbClient != nil {
		relay := realtime.NewRedisRelay(rdbClient, hub)
		pusher = relay
		go relay.Run(ctx)
	}

	sender := service.Sender(service.LogSender)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	go service.NewOutboxRelayer(db, sender).Run(ctx)

	issuer := pkg.NewTokenIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	notifier := service.NewNotificationService(db, pusher)
	userSvc := service.NewUserService(db, issuer, sessions, codes, mailer, store, notifier)

	r := router.InitRouter(router.Deps{
		Config: cfg,
		Auth:   &middleware.Authenticator{Issuer: issuer, Sessions: sessions, Users: userSvc},
		Redis:  rdbClient,

		User:  handler.NewUserHandler(userSvc),
		Admin: handler.NewAdminHandler(service.NewAdminService(db, store, sessions)),
		Post: handler.NewPostHandler(
			service.NewPostService(db, store),
			service.NewCommentService(db, notifier),
			service.NewReactionService(db, notifier),
			service.NewAnalyticsService(db),
			service.NewTrendingService(db),
		),
		Notification: handler.NewNotificationHandler(notifier, hub),
		Resource:     handler.NewResourceHandler(service.NewResourceService(db, store, notifier)),
		Blog:         handler.NewBlogHandler(service.NewBlogService(db, store, notifier)),
		Invitation:   handler.NewInvitationHandler(service.NewInvitationService(db, mailer, cfg.FrontendURL)),
		Broadcast:    handler.NewBroadcastHandler(service.NewBroadcastService(db)),
		Chat: handler.NewChatHandler(service.NewChatService(service.ChatConfig{
			APIKey: cfg.AI.APIKey, Model: cfg.AI.Model, BaseURL: cfg.AI.BaseURL,
		})),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		pkg.Log.WithField("addr", srv.Addr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pkg.Log.WithError(err).Fatal("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	pkg.Log.Info("shutting down")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		pkg.Log.WithError(err).Error("server shutdown failed")
	}
}
