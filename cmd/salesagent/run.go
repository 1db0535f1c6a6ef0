package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/qqmakana/ai-sales-agent/internal/agent/models"
	"github.com/qqmakana/ai-sales-agent/internal/runtime"
	"github.com/qqmakana/ai-sales-agent/internal/worker"
	"github.com/qqmakana/ai-sales-agent/tools/email"
	"github.com/spf13/cobra"
)

func runCMD(cfgPath *string) *cobra.Command {
	var (
		automationID string
		action       string
		niche        string
		recipient    string
		sender       string
	)
	cmd := &cobra.Command{
		Use:   "run [goal]",
		Short: "Run one goal, or one stored automation, in the foreground",
		Args: func(cmd *cobra.Command, args []string) error {
			if automationID == "" && len(args) == 0 {
				return fmt.Errorf("a goal or --automation is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			notifier := email.NewMailer(cfg.Email, &http.Client{Timeout: cfg.Email.Timeout}, log)
			deps := runtime.PipelineDeps{Notifier: notifier}

			if automationID != "" {
				st, err := runtime.OpenStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				deps.LeadStore = st
				pipeline, err := runtime.NewPipeline(cfg, deps, log)
				if err != nil {
					return err
				}
				res, err := worker.NewRunner(st, pipeline.Controller, notifier, log).RunAutomation(ctx, automationID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n%s\n", automationID, res.Outcome, res.Result)
				return nil
			}

			pipeline, err := runtime.NewPipeline(cfg, deps, log)
			if err != nil {
				return err
			}
			rc := models.RunContext{
				Action:      models.ActionKind(action),
				Niche:       niche,
				Recipient:   recipient,
				SenderEmail: sender,
			}
			s := pipeline.Controller.RunWith(ctx, rc, strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %d steps, %d completed, %d failed\n",
				s.Message, s.Outcome, s.Steps, s.Completed, s.Failed)
			if s.State != nil {
				for i, obs := range s.State.Observations {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s [%s] %s\n", s.State.ToolHistory[i].Spec.Name, obs.Status, obs.OutputText)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&automationID, "automation", "", "execute the stored automation with this id")
	cmd.Flags().StringVar(&action, "action", "", "email, leads or auto")
	cmd.Flags().StringVar(&niche, "niche", "", "lead niche override")
	cmd.Flags().StringVar(&recipient, "recipient", "", "report recipients, comma separated")
	cmd.Flags().StringVar(&sender, "sender", "", "reply-to address for outgoing mail")
	return cmd
}
