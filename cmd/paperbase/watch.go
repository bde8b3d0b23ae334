package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/logging"
	"github.com/paperbase/paperbase/internal/metrics"
	"github.com/paperbase/paperbase/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace for external changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openWorkspace(cmd.Context(), openOptions())
		if err != nil {
			return err
		}
		defer svc.Close()

		if cfg.MetricsAddr != "" {
			go func() {
				if err := metrics.Serve(cfg.MetricsAddr); err != nil {
					logging.L().Error("metrics server failed", zap.Error(err))
				}
			}()
		}

		w := watcher.New(svc, cfg.WatchInterval, logging.L())
		if err := w.Start(cmd.Context()); err != nil {
			return err
		}
		defer w.Stop()

		events := w.Subscribe()
		defer w.Unsubscribe(events)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		fmt.Printf("watching %s every %s\n", svc.GetRootPath(), cfg.WatchInterval)
		for {
			select {
			case event := <-events:
				fmt.Printf("%s  %-7s %s\n",
					time.Unix(event.Time, 0).Format("15:04:05"), event.Type, event.Path)
			case <-sigCh:
				return nil
			case <-cmd.Context().Done():
				return nil
			}
		}
	},
}
