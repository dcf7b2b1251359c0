package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rubiojr/crmdesk/pkg/search"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Find trips by the main tourist's surname",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "surname",
				Aliases:  []string{"s"},
				Usage:    "Surname to look up (case-insensitive)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw response as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchTrips(ctx, c.String("config"), c.Bool("debug"), c.String("surname"), c.Bool("json"))
		},
	}
}

func searchTrips(ctx context.Context, configPath string, debug bool, surname string, asJSON bool) error {
	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.search.SearchBySurname(ctx, surname)
	if err != nil {
		return fmt.Errorf("searching %q: %w", surname, err)
	}

	if asJSON {
		return writeIndentedJSON(os.Stdout, resp)
	}
	fmt.Print(formatSearch(surname, resp))
	return nil
}

func formatSearch(surname string, resp *search.SearchResponse) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Search %q: %d result(s)", surname, resp.Count)))
	b.WriteString("\n")

	if resp.Count == 0 {
		b.WriteString(noDataStyle.Render("Ничего не найдено"))
		b.WriteString("\n")
		return b.String()
	}
	for _, text := range resp.TextMessages {
		b.WriteString(blockStyle.Render(text))
		b.WriteString("\n")
	}
	return b.String()
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
