package main

import (
	"context"
	"net/http"

	"github.com/qqmakana/ai-sales-agent/internal/queue/streams"
	"github.com/qqmakana/ai-sales-agent/internal/runtime"
	"github.com/qqmakana/ai-sales-agent/internal/worker"
	"github.com/qqmakana/ai-sales-agent/tools/email"
	"github.com/spf13/cobra"
)

func workerCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued automations and run them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *cfgPath, "worker")
			if err != nil {
				return err
			}
			defer a.Close()

			wc := a.cfg.Worker
			reg, err := a.registry()
			if err != nil {
				return err
			}
			stream := a.cfg.Storage.Redis.Stream
			if err := streams.EnsureGroup(ctx, a.redis, stream, wc.Group); err != nil {
				return err
			}
			consumer := streams.NewConsumer(a.redis, reg, stream, wc.Group, wc.Consumer,
				streams.WithBlock(wc.BlockTimeout), streams.WithLogger(a.log))
			a.serveHealth(ctx, map[string]runtime.Check{
				"stream": func(ctx context.Context) error {
					_, err := consumer.Lag(ctx)
					return err
				},
			})

			notifier := email.NewMailer(a.cfg.Email, &http.Client{Timeout: a.cfg.Email.Timeout}, a.log)
			pipeline, err := runtime.NewPipeline(a.cfg, runtime.PipelineDeps{LeadStore: a.store, Notifier: notifier}, a.log)
			if err != nil {
				return err
			}
			runner := worker.NewRunner(a.store, pipeline.Controller, notifier, a.log)
			proc := worker.NewProcessor(wc, consumer, a.store, runner, a.log)

			a.log.Info().Str("stream", stream).Str("group", wc.Group).Str("consumer", wc.Consumer).
				Strs("email_transports", notifier.Transports()).Strs("tools", pipeline.Registry.List()).
				Msg("worker starting")
			return proc.Start(ctx)
		},
	}
}
