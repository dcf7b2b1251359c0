package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rubiojr/crmdesk/pkg/repository"
	"github.com/urfave/cli/v3"
)

// WarmCommand creates the warm command
func WarmCommand() *cli.Command {
	return &cli.Command{
		Name:  "warm",
		Usage: "Load every lookup sheet once and report what the source returned",
		Action: func(ctx context.Context, c *cli.Command) error {
			return warmCache(ctx, c.String("config"), c.Bool("debug"))
		},
	}
}

func warmCache(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := warmReport(ctx, svc.repo)
	fmt.Print(report)
	return err
}

// warmReport warms repo and renders one line per sheet. The returned error
// is the one reported by WarmCache.
func warmReport(ctx context.Context, repo *repository.Repository) (string, error) {
	warmErr := repo.WarmCache(ctx)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cache warm-up"))
	b.WriteString("\n")
	for _, name := range repository.WarmSheets {
		table, err := repo.LoadSheet(ctx, name)
		if err != nil {
			b.WriteString(failStyle.Render("✗ "+name) + " " + err.Error() + "\n")
			continue
		}
		b.WriteString(okStyle.Render("✓ "+name) + fmt.Sprintf(" %d rows, %d columns\n", len(table.Rows), len(table.Headers)))
	}
	if tz, err := repo.Timezone(ctx); err == nil {
		b.WriteString(field("Timezone", tz) + "\n")
	}
	return b.String(), warmErr
}
