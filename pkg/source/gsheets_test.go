package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rubiojr/crmdesk/pkg/sheet"
)

func newSheetsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sheet-1/values/Trips", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("valueRenderOption"); got != "UNFORMATTED_VALUE" {
			t.Errorf("unexpected valueRenderOption %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Trips!A1:C3","values":[["Trip ID","Start Date","Total"],["T1",45311,"1000"],["T2",""]]}`))
	})
	mux.HandleFunc("GET /sheet-1/values/Missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Unable to parse range: Missing"}}`, http.StatusBadRequest)
	})
	mux.HandleFunc("GET /sheet-1/values/Broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /sheet-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties":{"timeZone":"Europe/Moscow"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleSheets(srv *httptest.Server) *GoogleSheets {
	return NewGoogleSheets(GoogleSheetsConfig{
		SpreadsheetID:     "sheet-1",
		ValueRenderOption: "UNFORMATTED_VALUE",
		Endpoint:          srv.URL + "/",
		HTTPClient:        srv.Client(),
	})
}

func TestGoogleSheetsReadSheet(t *testing.T) {
	g := newTestGoogleSheets(newSheetsServer(t))

	rows, err := g.ReadSheet(context.Background(), "Trips")
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][1].Kind() != sheet.Number || rows[1][1].Float() != 45311 {
		t.Errorf("expected numeric serial, got %v %q", rows[1][1].Kind(), rows[1][1].String())
	}
	if rows[1][2].Kind() != sheet.Text || rows[1][2].String() != "1000" {
		t.Errorf("expected text total, got %v", rows[1][2].Kind())
	}
	if rows[2][1].Kind() != sheet.Empty {
		t.Errorf("empty string should become an empty cell")
	}
}

func TestGoogleSheetsErrors(t *testing.T) {
	g := newTestGoogleSheets(newSheetsServer(t))

	if _, err := g.ReadSheet(context.Background(), "Missing"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
	if _, err := g.ReadSheet(context.Background(), "Broken"); err == nil || errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected generic error, got %v", err)
	}
}

func TestGoogleSheetsTimezone(t *testing.T) {
	g := newTestGoogleSheets(newSheetsServer(t))

	tz, err := g.Timezone(context.Background())
	if err != nil {
		t.Fatalf("Timezone: %v", err)
	}
	if tz != "Europe/Moscow" {
		t.Fatalf("expected Europe/Moscow, got %q", tz)
	}
}

func TestGoogleSheetsMissingCredentials(t *testing.T) {
	g := NewGoogleSheets(GoogleSheetsConfig{SpreadsheetID: "x"})
	if _, err := g.ReadSheet(context.Background(), "Trips"); err == nil {
		t.Fatalf("expected an error without credentials")
	}

	g = NewGoogleSheets(GoogleSheetsConfig{SpreadsheetID: "x", ServiceAccountJSON: []byte("{not json")})
	if _, err := g.Timezone(context.Background()); err == nil {
		t.Fatalf("expected an error for malformed credentials")
	}
}
