package main

import (
	"github.com/google/uuid"
	"github.com/qqmakana/ai-sales-agent/internal/queue/streams"
	"github.com/qqmakana/ai-sales-agent/internal/scheduler"
	"github.com/spf13/cobra"
)

func schedulerCMD(cfgPath *string) *cobra.Command {
	var maxLen int64
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Dispatch due automations to the worker queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *cfgPath, "scheduler")
			if err != nil {
				return err
			}
			defer a.Close()
			a.serveHealth(ctx, nil)

			reg, err := a.registry()
			if err != nil {
				return err
			}
			var opts []streams.PublisherOption
			if maxLen > 0 {
				opts = append(opts, streams.WithMaxLenApprox(maxLen))
			}
			pub := streams.NewPublisher(a.redis, reg, a.cfg.Storage.Redis.Stream, opts...)
			lock := scheduler.RedisTickLock{Client: a.redis, Owner: uuid.NewString()}
			d := scheduler.New(a.cfg.Scheduler, a.store, pub, lock, a.log)

			a.log.Info().Dur("interval", a.cfg.Scheduler.Interval).Str("stream", pub.Stream()).Msg("scheduler starting")
			return d.Run(ctx)
		},
	}
	cmd.Flags().Int64Var(&maxLen, "max-len", 10000, "approximate stream length cap (0 = unbounded)")
	return cmd
}
