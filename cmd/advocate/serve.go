package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sujalkunwar22/backend/internal/appointment"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/chat"
	"github.com/sujalkunwar22/backend/internal/config"
	"github.com/sujalkunwar22/backend/internal/conversation"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/document"
	"github.com/sujalkunwar22/backend/internal/httpapi"
	"github.com/sujalkunwar22/backend/internal/lawyer"
	"github.com/sujalkunwar22/backend/internal/models"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/opsfeed"
	"github.com/sujalkunwar22/backend/internal/realtime"
	"github.com/sujalkunwar22/backend/internal/retention"
	"github.com/sujalkunwar22/backend/internal/review"
	"github.com/sujalkunwar22/backend/internal/signaling"
	"github.com/sujalkunwar22/backend/internal/wsapi"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and realtime server",
		Long:  "Serves the REST API and the /ws realtime endpoint, and runs the notification retention job.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, debug)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every HTTP request")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, debug bool) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	feed, err := opsfeed.FromConfig(cfg.OpsFeed.SlackToken, cfg.OpsFeed.SlackChannel,
		cfg.OpsFeed.DiscordToken, cfg.OpsFeed.DiscordChannel)
	if err != nil {
		return err
	}

	deps, job, err := buildServer(cfg, gormDB, feed)
	if err != nil {
		return err
	}

	deps.Debug = debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(out, "\nShutting down...")
	}()
	go job.Run(ctx)

	return httpapi.Start(ctx, httpapi.StartOpts{
		Deps: deps,
		Addr: cfg.Server.Addr(),
		Out:  out,
	})
}

// buildServer wires the services behind the API around one realtime hub.
func buildServer(cfg *config.Config, gormDB *gorm.DB, feed opsfeed.Feed) (httpapi.Deps, *retention.Job, error) {
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	dir := conversation.NewDirectory(gormDB)
	hub := realtime.NewHub(dir)
	sink := notify.NewSink(gormDB, hub)

	appts := appointment.NewService(gormDB, appointment.Options{
		Directory: dir,
		Sink:      sink,
		Events:    hub,
		Feed:      feed,
	})
	relay := chat.NewRelay(gormDB, chat.Options{
		Directory: dir,
		Gate:      appts,
		Sink:      sink,
		Rooms:     hub,
		PageSize:  cfg.Chat.HistoryPageSize,
		MaxPage:   cfg.Chat.MaxPageSize,
	})
	store, err := document.NewDirStore(cfg.Storage.UploadDir)
	if err != nil {
		return httpapi.Deps{}, nil, err
	}
	docs := document.NewService(gormDB, store, document.Options{
		Sink:    sink,
		Events:  hub,
		MaxSize: cfg.Storage.MaxUploadBytes(),
	})
	lawyers := lawyer.NewService(gormDB, lawyer.Options{Sink: sink, Feed: feed})
	calls := signaling.NewRouter(signaling.NewMemoryRegistry(), hub, dir)

	authn := func(r *http.Request) (*models.User, error) {
		return auth.Authenticate(r.Context(), gormDB, issuer, auth.TokenFromRequest(r))
	}
	socket := realtime.NewHandler(hub, authn, wsapi.NewDispatcher(hub, relay, calls), cfg.Server.WSAllowedOrigins)

	job, err := retention.NewJob(sink, cfg.Notifications.Retention(), cfg.Notifications.PurgeSchedule)
	if err != nil {
		return httpapi.Deps{}, nil, err
	}

	return httpapi.Deps{
		DB:            gormDB,
		Issuer:        issuer,
		Appointments:  appts,
		Chat:          relay,
		Notifications: sink,
		Documents:     docs,
		Reviews:       review.NewService(gormDB),
		Lawyers:       lawyers,
		Socket:        socket,
		CORSOrigin:    cfg.Server.CORSOrigin,
	}, job, nil
}
