package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"hiveroadmap/internal/engine/hive"
	"hiveroadmap/internal/engine/roadmap"
	"hiveroadmap/internal/pkg/logger"
	"hiveroadmap/internal/platform/config"
)

type app struct {
	service *roadmap.Service
	out     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand(&app{out: os.Stdout}).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("snapshot failed")
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapshot",
		Short:         "Print Hive roadmap snapshots as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.service != nil {
				return nil
			}

			cfgPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			// Logs go to stderr so stdout stays valid JSON.
			cfg.Logging.Output = "stderr"
			logger.Init(cfg.Logging)

			client := hive.NewClient(cfg.Hive)
			normalizer := roadmap.NewNormalizer(client.BaseURL(), client.SubmissionURL())
			a.service = roadmap.NewService(client, normalizer, cfg.Hive.PageConcurrency)
			return nil
		},
	}

	cmd.PersistentFlags().String("config", "configs/config.yaml", "Path to config file")

	cmd.AddCommand(addStatusCommand(a))
	cmd.AddCommand(addAggregateCommand(a))
	cmd.AddCommand(addSlugCommand(a))

	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *roadmap.QueryOptions) {
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", roadmap.DefaultSortBy, "Upstream sort order")
	cmd.Flags().BoolVar(&opts.InReview, "in-review", false, "Only include submissions in review")
	cmd.Flags().BoolVar(&opts.IncludePinned, "include-pinned", true, "Include pinned submissions")
}

func addStatusCommand(a *app) *cobra.Command {
	var opts roadmap.QueryOptions

	cmd := &cobra.Command{
		Use:   "status <statusId>",
		Short: "Snapshot every item of one status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := a.service.GetStatusItems(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return a.print(snapshot)
		},
	}
	addQueryFlags(cmd, &opts)
	return cmd
}

func addAggregateCommand(a *app) *cobra.Command {
	opts := roadmap.DefaultAggregateOptions()

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Snapshot every status of the roadmap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := a.service.GetAggregateRoadmap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.print(snapshot)
		},
	}
	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().BoolVar(&opts.IncludeCompleted, "include-completed", true, "Include statuses of type completed")
	return cmd
}

func addSlugCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "slug <slug>",
		Short: "Print the public URL of a submission slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.service.BuildPublicSlugURL(args[0])
			if err != nil {
				return err
			}
			return a.print(map[string]string{"slug": args[0], "url": url})
		},
	}
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
