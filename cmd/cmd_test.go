package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/crmdesk/pkg/config"
	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/rubiojr/crmdesk/pkg/repository"
	"github.com/rubiojr/crmdesk/pkg/search"
	"github.com/rubiojr/crmdesk/pkg/source"
)

func writeConfig(t *testing.T, path, apiKey string, allowed string) {
	t.Helper()
	content := `log_level = "INFO"

[source]
type = "xlsx"
path = "/nonexistent/crm.xlsx"

[access]
api_key = "` + apiKey + `"
allowed_user_ids = [` + allowed + `]
rate_limit_per_min = 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crmdesk", "config.toml")

	if err := initConfig(path, false); err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if err := initConfig(path, false); err == nil {
		t.Fatal("expected refusal to overwrite an existing config")
	}
	if err := initConfig(path, true); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[source]\ntype = \"xlsx\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path, false); err == nil {
		t.Fatal("expected validation error for xlsx source without a path")
	}
}

func TestReloadConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "old-key", `"1"`)

	cfg, err := loadConfig(path, false)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	svc, err := newServices(cfg)
	if err != nil {
		t.Fatalf("newServices failed: %v", err)
	}
	defer svc.Close()

	if !svc.access.CheckAPIKey("old-key") || !svc.access.IsAllowedUser("1") {
		t.Fatal("initial access settings not applied")
	}

	writeConfig(t, path, "new-key", `"2"`)
	if err := reloadConfiguration(path, svc, false); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if svc.access.CheckAPIKey("old-key") || !svc.access.CheckAPIKey("new-key") {
		t.Error("api key not reloaded")
	}
	if svc.access.IsAllowedUser("1") || !svc.access.IsAllowedUser("2") {
		t.Error("allow-list not reloaded")
	}
	if svc.cfg.Access.APIKey != "new-key" {
		t.Error("stored config not updated")
	}
}

func TestReloadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "key", `"1"`)
	cfg, err := loadConfig(path, false)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := newServices(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("this is not toml ["), 0600); err != nil {
		t.Fatal(err)
	}
	if err := reloadConfiguration(path, svc, false); err == nil {
		t.Fatal("expected reload error")
	}
	if !svc.access.CheckAPIKey("key") {
		t.Error("previous settings should survive a failed reload")
	}
}

func TestReloadKeepsDebugFlag(t *testing.T) {
	t.Cleanup(func() { log.SetGlobalDebug(false) })
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "key", `"1"`)

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if log.Level() != log.LevelDebug {
		t.Fatalf("--debug not applied, level %s", log.Level())
	}
	svc, err := newServices(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if err := reloadConfiguration(path, svc, true); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if log.Level() != log.LevelDebug {
		t.Fatalf("reload dropped --debug, level %s", log.Level())
	}

	if err := reloadConfiguration(path, svc, false); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if log.Level() != log.LevelInfo {
		t.Fatalf("expected configured INFO level without --debug, got %s", log.Level())
	}
}

func TestRestartOnlyChanges(t *testing.T) {
	prev := config.GetDefaultConfig()

	if changed := restartOnlyChanges(prev, config.GetDefaultConfig()); len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}

	next := config.GetDefaultConfig()
	next.Cache.TTL = config.Duration{Duration: time.Hour}
	next.Cache.MaxSheetRows = 10
	next.Search.MaxResults = 5
	next.Access.APIKey = "reloadable"

	changed := restartOnlyChanges(prev, next)
	if strings.Join(changed, ",") != "cache settings,search settings" {
		t.Fatalf("unexpected changes %v", changed)
	}

	next.Source.Path = "/other.xlsx"
	next.ListenAddr = ":9090"
	next.Bot.TelegramToken = "token"
	if changed := restartOnlyChanges(prev, next); len(changed) != 5 {
		t.Fatalf("expected every restart-only setting, got %v", changed)
	}
}

func TestFormatSearch(t *testing.T) {
	out := formatSearch("Ivanov", &search.SearchResponse{
		Status:       "ok",
		Count:        1,
		TextMessages: []string{"Номер заказа: T1"},
	})
	if !strings.Contains(out, "1 result(s)") || !strings.Contains(out, "Номер заказа: T1") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out = formatSearch("Nobody", &search.SearchResponse{Status: "ok"})
	if !strings.Contains(out, "Ничего не найдено") {
		t.Errorf("expected empty marker:\n%s", out)
	}
}

func TestFormatDossier(t *testing.T) {
	out := formatDossier(&search.TripDossier{
		Meta:  search.Meta{TripID: "T2", GeneratedAt: "2024-01-01T00:00:00Z", Timezone: "UTC"},
		Trips: []search.TripRecord{{TripID: "T2", Destination: "Rome", StartDate: "2024-03-10", Total: "1000", Currency: "EUR"}},
		Clients: []search.Client{{
			ClientID: "C1",
			LastName: "Petrov",
			Amount:   "500",
			Contacts: []search.Contact{{Phone: "+100", Email: "p@example.com"}},
		}},
		Payments: search.Payments{Total: "1000", Currency: "EUR", PerClient: []search.ClientPayment{{ClientID: "C1", Amount: "500"}}},
	})
	for _, want := range []string{"Trip T2", "Rome", "2024-03-10", "1000 EUR", "Clients (1)", "p@example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWarmReport(t *testing.T) {
	src := source.NewMemory("Europe/Madrid", map[string][][]string{
		"Trips":   {{"Trip ID", "Last Name"}, {"T1", "Ivanov"}},
		"Profile": {{"Trip ID"}},
	})
	repo := repository.New(src, repository.Options{TTL: time.Minute})

	out, err := warmReport(context.Background(), repo)
	if err == nil {
		t.Fatal("expected error for the missing Contacts sheet")
	}
	if !strings.Contains(out, "Trips") || !strings.Contains(out, "1 rows, 2 columns") {
		t.Errorf("unexpected report:\n%s", out)
	}
	if !strings.Contains(out, "Contacts") || !strings.Contains(out, "Europe/Madrid") {
		t.Errorf("report should list the failing sheet and timezone:\n%s", out)
	}
}
