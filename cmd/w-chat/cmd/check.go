package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Gakyra/w-chat/internal/assets"
	"github.com/Gakyra/w-chat/internal/probe"
	"github.com/Gakyra/w-chat/internal/server"
	"github.com/Gakyra/w-chat/pkg/config"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the site files exist and exit",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root, err := assets.Open(ctx, cfg)
	if err != nil {
		return err
	}

	report, probeErr := server.NewProber(root, cfg.Site.StaticDir).Probe(ctx)
	printReport(cmd.OutOrStdout(), cfg, report)
	if probeErr != nil {
		return fmt.Errorf("site not ready: %w", probeErr)
	}
	return nil
}

func printReport(w io.Writer, cfg *config.Config, report probe.Report) {
	if cfg.Site.AssetSource == config.AssetSourceS3 {
		fmt.Fprintf(w, "site root: s3://%s/%s\n", cfg.S3.Bucket, cfg.S3.KeyPrefix)
	} else {
		fmt.Fprintf(w, "site root: %s\n", cfg.Site.Root)
	}

	missing := make(map[string]bool, len(report.Missing))
	for _, name := range report.Missing {
		missing[name] = true
	}
	for _, name := range report.Checked {
		status := "ok"
		if missing[name] {
			status = "missing"
		}
		fmt.Fprintf(w, "  %-8s %s\n", status, name)
	}
}
