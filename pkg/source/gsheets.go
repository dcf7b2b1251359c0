package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/rubiojr/crmdesk/pkg/sheet"
	"golang.org/x/oauth2/google"
)

// ReadOnlyScope is the only OAuth scope requested from Google.
const ReadOnlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

const defaultSheetsEndpoint = "https://sheets.googleapis.com/v4/spreadsheets/"

type GoogleSheetsConfig struct {
	SpreadsheetID      string
	ServiceAccountJSON []byte
	// ValueRenderOption is passed to the values API. FORMATTED_VALUE
	// returns every cell as displayed text; UNFORMATTED_VALUE keeps
	// numbers (and serial dates) numeric.
	ValueRenderOption string
	// Endpoint overrides the API base URL. Used by tests.
	Endpoint string
	// HTTPClient overrides the authenticated client. Used by tests.
	HTTPClient *http.Client
}

// GoogleSheets reads a spreadsheet through the Sheets v4 REST API using a
// service account.
type GoogleSheets struct {
	cfg    GoogleSheetsConfig
	logger *log.Logger

	mu     sync.Mutex
	client *http.Client
}

func NewGoogleSheets(cfg GoogleSheetsConfig) *GoogleSheets {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultSheetsEndpoint
	}
	if cfg.ValueRenderOption == "" {
		cfg.ValueRenderOption = "FORMATTED_VALUE"
	}
	return &GoogleSheets{
		cfg:    cfg,
		logger: log.ForService("gsheets"),
		client: cfg.HTTPClient,
	}
}

// httpClient lazily builds the authenticated client so a missing credential
// only fails the requests that need it, not process startup.
func (g *GoogleSheets) httpClient(ctx context.Context) (*http.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if len(g.cfg.ServiceAccountJSON) == 0 {
		return nil, errors.New("service account json missing")
	}
	jwt, err := google.JWTConfigFromJSON(g.cfg.ServiceAccountJSON, ReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account json: %w", err)
	}
	// The token source outlives the request that created it.
	g.client = jwt.Client(context.WithoutCancel(ctx))
	return g.client, nil
}

type valueRange struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

type spreadsheet struct {
	Properties struct {
		TimeZone string `json:"timeZone"`
	} `json:"properties"`
}

func (g *GoogleSheets) ReadSheet(ctx context.Context, name string) ([][]sheet.Cell, error) {
	q := url.Values{}
	q.Set("valueRenderOption", g.cfg.ValueRenderOption)
	q.Set("dateTimeRenderOption", "SERIAL_NUMBER")
	path := url.PathEscape(g.cfg.SpreadsheetID) + "/values/" + url.PathEscape(name) + "?" + q.Encode()

	var vr valueRange
	if err := g.get(ctx, path, &vr); err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}

	rows := make([][]sheet.Cell, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]sheet.Cell, len(raw))
		for j, v := range raw {
			row[j] = cellFromJSON(v)
		}
		rows[i] = row
	}
	g.logger.Debugf("read %d rows from %s", len(rows), name)
	return rows, nil
}

func (g *GoogleSheets) Timezone(ctx context.Context) (string, error) {
	path := url.PathEscape(g.cfg.SpreadsheetID) + "?fields=properties.timeZone"

	var s spreadsheet
	if err := g.get(ctx, path, &s); err != nil {
		return "", fmt.Errorf("reading spreadsheet properties: %w", err)
	}
	return s.Properties.TimeZone, nil
}

func (g *GoogleSheets) get(ctx context.Context, path string, out any) error {
	client, err := g.httpClient(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.Endpoint+path, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSheetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// The API reports unknown ranges as 400 "Unable to parse range".
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "Unable to parse range") {
			return ErrSheetNotFound
		}
		return fmt.Errorf("sheets api returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding sheets response: %w", err)
	}
	return nil
}

func cellFromJSON(v any) sheet.Cell {
	switch val := v.(type) {
	case nil:
		return sheet.Cell{}
	case string:
		if val == "" {
			return sheet.Cell{}
		}
		return sheet.TextCell(val)
	case float64:
		return sheet.NumberCell(val)
	case bool:
		if val {
			return sheet.TextCell("TRUE")
		}
		return sheet.TextCell("FALSE")
	default:
		return sheet.TextCell(fmt.Sprint(val))
	}
}
