package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/hkexingest/core"
)

const searchPageHTML = `<html><body>
<form id="searchForm" action="/search/titlesearch.xhtml" method="post">
<input type="hidden" name="javax.faces.ViewState" value="stateToken123"/>
</form>
</body></html>`

// fakeExchange serves the search page, the form POST, and the JSON
// servlet the way the production service does.
type fakeExchange struct {
	records      []apiRecord
	pageCalls    int
	servletCalls int
	postedForm   map[string]string
	failMonths   map[string]bool // fromDate values that return 500
	pageByCall   bool            // serve 2 records on first call, all after
}

func (f *fakeExchange) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/titlesearch.xhtml", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = r.ParseForm()
			f.postedForm = map[string]string{
				"viewState": r.PostFormValue("javax.faces.ViewState"),
				"from":      r.PostFormValue("from"),
				"to":        r.PostFormValue("to"),
			}
			return
		}
		f.pageCalls++
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, searchPageHTML)
	})
	mux.HandleFunc("/search/titleSearchServlet.do", func(w http.ResponseWriter, r *http.Request) {
		f.servletCalls++
		if f.failMonths[r.URL.Query().Get("fromDate")] {
			http.Error(w, "backend error", http.StatusInternalServerError)
			return
		}

		serve := f.records
		hasNext := false
		if f.pageByCall && f.servletCalls == 1 && len(f.records) > 2 {
			serve = f.records[:2]
			hasNext = true
		}
		result, _ := json.Marshal(serve)
		envelope := map[string]any{
			"result":     string(result),
			"hasNextRow": hasNext,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(envelope)
	})
	return mux
}

func record(code, title, dateTime, link string, total int) apiRecord {
	return apiRecord{
		StockCode:  code,
		StockName:  "TEST CO",
		Title:      title,
		DateTime:   dateTime,
		FileLink:   link,
		TotalCount: fmt.Sprintf("%d", total),
	}
}

func TestFetchWindowSingleCall(t *testing.T) {
	fake := &fakeExchange{
		records: []apiRecord{
			record("00005", "Annual Report", "15/03/2024 08:00", "/doc/a.pdf", 2),
			record("00700", "Monthly Return", "10/03/2024 08:00", "/doc/b.pdf", 2),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	records, err := client.FetchWindow(context.Background(),
		Window{From: date(2024, 3, 1), To: date(2024, 3, 31)}, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if !strings.HasPrefix(records[0].Link, srv.URL) {
		t.Fatalf("Expected absolute link, got '%s'", records[0].Link)
	}
	if fake.postedForm["viewState"] != "stateToken123" {
		t.Fatalf("Expected ViewState posted, got '%s'", fake.postedForm["viewState"])
	}
	if fake.postedForm["from"] != "20240301" || fake.postedForm["to"] != "20240331" {
		t.Fatalf("Expected date range posted, got %v", fake.postedForm)
	}
}

func TestFetchWindowPaginates(t *testing.T) {
	fake := &fakeExchange{
		pageByCall: true,
		records: []apiRecord{
			record("00001", "Filing One", "20/03/2024 08:00", "/doc/1.pdf", 3),
			record("00002", "Filing Two", "19/03/2024 08:00", "/doc/2.pdf", 3),
			record("00003", "Filing Three", "18/03/2024 08:00", "/doc/3.pdf", 3),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	records, err := client.FetchWindow(context.Background(),
		Window{From: date(2024, 3, 1), To: date(2024, 3, 31)}, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records after pagination, got %d", len(records))
	}
	if fake.servletCalls != 2 {
		t.Fatalf("Expected 2 servlet calls, got %d", fake.servletCalls)
	}
	// The second page re-sends earlier rows; they must not duplicate.
	seen := map[string]bool{}
	for _, r := range records {
		if seen[r.StockCode] {
			t.Fatalf("Duplicate record for %s", r.StockCode)
		}
		seen[r.StockCode] = true
	}
}

func TestFetchWindowMaxRecords(t *testing.T) {
	fake := &fakeExchange{
		records: []apiRecord{
			record("00001", "Filing One", "20/03/2024 08:00", "/doc/1.pdf", 3),
			record("00002", "Filing Two", "19/03/2024 08:00", "/doc/2.pdf", 3),
			record("00003", "Filing Three", "18/03/2024 08:00", "/doc/3.pdf", 3),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	records, err := client.FetchWindow(context.Background(),
		Window{From: date(2024, 3, 1), To: date(2024, 3, 31)}, 2)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) > 2 {
		t.Fatalf("Expected at most 2 records, got %d", len(records))
	}
}

func TestScraperDedupAcrossWindows(t *testing.T) {
	// The same record shows up in both monthly windows.
	fake := &fakeExchange{
		records: []apiRecord{
			record("00005", "Annual Report", "15/03/2024 08:00", "/doc/a.pdf", 1),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	s := New(client, date(2024, 2, 1), date(2024, 3, 31),
		WithRetry(1, time.Millisecond))

	var filings []*core.Filing
	for {
		f, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if f == nil {
			break
		}
		filings = append(filings, f)
	}
	if len(filings) != 1 {
		t.Fatalf("Expected 1 unique filing across windows, got %d", len(filings))
	}
}

func TestScraperSkipsFailedWindow(t *testing.T) {
	fake := &fakeExchange{
		records: []apiRecord{
			record("00005", "Annual Report", "15/02/2024 08:00", "/doc/a.pdf", 1),
		},
		failMonths: map[string]bool{"20240301": true},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	s := New(client, date(2024, 2, 1), date(2024, 3, 31),
		WithRetry(2, time.Millisecond))

	var filings []*core.Filing
	for {
		f, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if f == nil {
			break
		}
		filings = append(filings, f)
	}
	if len(filings) != 1 {
		t.Fatalf("Expected February filing despite March failure, got %d", len(filings))
	}
	if len(s.Warnings()) != 1 {
		t.Fatalf("Expected 1 warning for the failed window, got %d", len(s.Warnings()))
	}
}

func TestScraperLimit(t *testing.T) {
	fake := &fakeExchange{
		records: []apiRecord{
			record("00001", "Filing One", "20/03/2024 08:00", "/doc/1.pdf", 3),
			record("00002", "Filing Two", "19/03/2024 08:00", "/doc/2.pdf", 3),
			record("00003", "Filing Three", "18/03/2024 08:00", "/doc/3.pdf", 3),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	s := New(client, date(2024, 3, 1), date(2024, 3, 31),
		WithLimit(2), WithRetry(1, time.Millisecond))

	count := 0
	for {
		f, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if f == nil {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("Expected limit of 2, got %d", count)
	}
}

func TestScraperContextCancelled(t *testing.T) {
	fake := &fakeExchange{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(client, date(2024, 3, 1), date(2024, 3, 31),
		WithRetry(1, time.Millisecond))
	if _, err := s.Next(ctx); err == nil {
		t.Fatal("Expected context error")
	}
}
