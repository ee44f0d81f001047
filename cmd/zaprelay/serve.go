package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zaprelay/zaprelay/conversation"
	"github.com/zaprelay/zaprelay/internal/dispatch"
	"github.com/zaprelay/zaprelay/internal/fsstore"
	"github.com/zaprelay/zaprelay/internal/httpserver"
	"github.com/zaprelay/zaprelay/internal/logutil"
	"github.com/zaprelay/zaprelay/internal/statepaths"
	"github.com/zaprelay/zaprelay/relay"
	"github.com/zaprelay/zaprelay/wasender"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the turn-processing pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			bind := strings.TrimSpace(viper.GetString("http.bind"))
			if bind == "" {
				bind = "0.0.0.0"
			}
			port := viper.GetInt("http.port")
			if port <= 0 {
				port = 8080
			}

			conversationsDir := statepaths.ConversationsDir()
			locksDir := statepaths.LocksDir()
			if err := fsstore.EnsureDir(conversationsDir, 0o700); err != nil {
				return err
			}
			if err := fsstore.EnsureDir(locksDir, 0o700); err != nil {
				return err
			}

			persona := relay.LoadPersona(statepaths.PersonaPath(), logger)
			store := conversation.NewStore(conversation.Options{
				Dir:        conversationsDir,
				LocksDir:   locksDir,
				MaxHistory: viper.GetInt("conversations.max_history"),
				Logger:     logger,
			})

			sender, err := wasenderFromViper()
			if err != nil {
				return err
			}
			gen, err := generationFromViper(logger)
			if err != nil {
				return err
			}

			svc := relay.NewService(persona, store, gen, sender, relay.Config{
				MaxLinesPerChunk: viper.GetInt("chunk.max_lines"),
				MaxCharsPerLine:  viper.GetInt("chunk.max_chars"),
				DelayMin:         viper.GetDuration("chunk.delay_min"),
				DelayMax:         viper.GetDuration("chunk.delay_max"),
				NotifyGroupID:    viper.GetString("notify.group_id"),
				GenerateTimeout:  viper.GetDuration("llm.request_timeout"),
			}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// One worker per user keeps each conversation strictly ordered
			// while different users proceed in parallel.
			workers := dispatch.New(dispatch.Options[relay.Inbound]{
				Ctx:         ctx,
				MaxInFlight: viper.GetInt("dispatch.max_in_flight"),
				QueueSize:   viper.GetInt("dispatch.queue_size"),
				Handle: func(ctx context.Context, in relay.Inbound) {
					svc.ProcessTurn(ctx, in)
				},
			})

			router := httpserver.NewRouter(httpserver.Deps{
				Logger:          logger,
				Version:         version,
				PersonaName:     persona.Name,
				MenuEnabled:     persona.Menu.Enabled,
				GenerationReady: gen != nil,
				StartedAt:       time.Now(),
				Enqueue: func(ctx context.Context, in wasender.Inbound) error {
					key := conversation.NormalizeKey(in.SenderJID)
					return workers.Enqueue(ctx, key, relay.Inbound{
						SenderJID: in.SenderJID,
						MessageID: in.MessageID,
						Text:      in.Text,
					})
				},
				ClearHistory: store.Clear,
			})

			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go func() {
				logger.Info("server_start",
					"addr", addr,
					"persona", persona.Name,
					"menu_enabled", persona.Menu.Enabled,
					"generation_ready", gen != nil,
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server_failed", "error", err.Error())
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutdown_start")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown_error", "error", err.Error())
			}
			logger.Info("server_stopped")
			return nil
		},
	}

	return cmd
}
