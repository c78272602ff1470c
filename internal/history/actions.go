package history

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/web-audit/internal/common"
	"github.com/dtnitsch/web-audit/internal/serve"
	dbpkg "github.com/dtnitsch/web-audit/pkg/db"
)

// HistoryAction prints recent audits, newest first.
func HistoryAction(c *cli.Context) error {
	cfg, err := serve.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.History.Path == "" {
		return cli.Exit("audit history is disabled; pass --history-db or set history.path", 2)
	}

	database, err := dbpkg.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	target := c.String("url")
	if target != "" {
		if target, err = common.NormalizeURL(target); err != nil {
			return cli.Exit(fmt.Sprintf("invalid url: %v", err), 2)
		}
	}

	records, err := database.ListAudits(target, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list audits: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No audits found")
		return nil
	}

	fmt.Printf("%-36s %-20s %-5s %-14s %-6s %-6s %-5s %s\n",
		"Audit ID", "Created", "Mode", "Analysis", "Score", "Pages", "Perf", "URL")
	fmt.Println(strings.Repeat("-", 120))

	for _, r := range records {
		perf := "-"
		if r.PerformanceScore != nil {
			perf = fmt.Sprintf("%d", *r.PerformanceScore)
		}
		fmt.Printf("%-36s %-20s %-5s %-14s %-6.0f %-6d %-5s %s\n",
			r.AuditID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.AnalysisMode,
			r.VibeScore,
			r.PageCount,
			perf,
			r.URL,
		)
	}

	fmt.Printf("\nTotal: %d audits\n", len(records))
	return nil
}
