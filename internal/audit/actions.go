package audit

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/web-audit/internal/app"
	"github.com/dtnitsch/web-audit/internal/serve"
	"github.com/dtnitsch/web-audit/pkg/auditor"
	"github.com/dtnitsch/web-audit/pkg/storage"
)

// AuditAction runs one audit and prints the report to stdout, or saves it
// with --output.
func AuditAction(c *cli.Context) error {
	logger := app.NewLogger(c.Bool("quiet"), c.Bool("verbose"))

	format := c.String("format")
	if !storage.ValidFormat(format) {
		return cli.Exit(fmt.Sprintf("unknown format %q (want json or yaml)", format), 2)
	}

	cfg, err := serve.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(c.Context, cfg.Timeouts.Request)
	defer cancel()

	report, err := a.Auditor.Run(ctx, auditor.Request{
		URL:          c.String("url"),
		Mode:         c.String("mode"),
		ForceRefresh: c.Bool("force-refresh"),
	})
	if err != nil {
		var reqErr *auditor.RequestError
		if errors.As(err, &reqErr) {
			if reqErr.Diagnostics != nil {
				_ = storage.Encode(os.Stderr, format, reqErr.Diagnostics)
			}
			return cli.Exit(reqErr.Message, 1)
		}
		return fmt.Errorf("audit failed: %w", err)
	}

	if out := c.String("output"); out != "" {
		if err := storage.SaveFile(out, format, report); err != nil {
			return err
		}
		logger.Info("report saved", "path", out, "audit_id", report.Meta.AuditID)
		return nil
	}
	return storage.Encode(os.Stdout, format, report)
}
