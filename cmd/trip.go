package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rubiojr/crmdesk/pkg/search"
	"github.com/urfave/cli/v3"
)

// TripCommand creates the trip command
func TripCommand() *cli.Command {
	return &cli.Command{
		Name:  "trip",
		Usage: "Show the full dossier of a trip",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Trip identifier",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the dossier as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return showTrip(ctx, c.String("config"), c.Bool("debug"), c.String("id"), c.Bool("json"))
		},
	}
}

func showTrip(ctx context.Context, configPath string, debug bool, tripID string, asJSON bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	dossier, err := svc.search.GetTrip(ctx, tripID)
	if errors.Is(err, search.ErrNotFound) {
		return fmt.Errorf("trip %q not found", tripID)
	}
	if err != nil {
		return fmt.Errorf("loading trip %q: %w", tripID, err)
	}

	if asJSON {
		return writeIndentedJSON(os.Stdout, dossier)
	}
	fmt.Print(formatDossier(dossier))
	return nil
}

func formatDossier(d *search.TripDossier) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Trip " + d.Meta.TripID))
	b.WriteString("\n")

	for _, t := range d.Trips {
		lines := []string{
			field("Tourist", strings.TrimSpace(t.MainTourist.LastName+" "+t.MainTourist.FirstName)),
			field("Destination", t.Destination),
			field("Start date", t.StartDate),
			field("Total", strings.TrimSpace(t.Total+" "+t.Currency)),
		}
		b.WriteString(blockStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("Clients (%d)", len(d.Clients))))
	b.WriteString("\n")
	if len(d.Clients) == 0 {
		b.WriteString(noDataStyle.Render("no clients recorded"))
		b.WriteString("\n")
	}
	for _, c := range d.Clients {
		lines := []string{
			field("Client", c.ClientID),
			field("Name", strings.TrimSpace(c.LastName+" "+c.FirstName)),
			field("Amount", c.Amount),
		}
		for _, ct := range c.Contacts {
			lines = append(lines, field("Contact", strings.TrimSpace(ct.Phone+" "+ct.Email)))
		}
		b.WriteString(blockStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString(headerStyle.Render("Payments"))
	b.WriteString("\n")
	b.WriteString(field("Total", strings.TrimSpace(d.Payments.Total+" "+d.Payments.Currency)))
	b.WriteString("\n")
	for _, p := range d.Payments.PerClient {
		b.WriteString("  " + field(p.ClientID, p.Amount))
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("generated %s (%s)", d.Meta.GeneratedAt, d.Meta.Timezone)))
	b.WriteString("\n")
	return b.String()
}
