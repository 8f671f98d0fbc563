// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultBaseURL is the production news endpoint of the exchange.
	DefaultBaseURL = "https://www1.hkexnews.hk"

	searchPagePath = "/search/titlesearch.xhtml"
	servletPath    = "/search/titleSearchServlet.do"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// pageSize is how many additional rows each servlet call requests.
	pageSize = 5000
)

// Client talks to the exchange's title-search service. The service is
// session-oriented: a date range must first be posted through the JSF
// search form (carrying its ViewState token) before the JSON servlet
// returns records for it, and the session lives in cookies.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a search client against the given base URL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// apiRecord is one raw record as returned by the JSON servlet.
type apiRecord struct {
	NewsID     string `json:"NEWS_ID"`
	StockName  string `json:"STOCK_NAME"`
	StockCode  string `json:"STOCK_CODE"`
	Title      string `json:"TITLE"`
	FileType   string `json:"FILE_TYPE"`
	FileInfo   string `json:"FILE_INFO"`
	DateTime   string `json:"DATE_TIME"`
	FileLink   string `json:"FILE_LINK"`
	LongText   string `json:"LONG_TEXT"`
	TotalCount string `json:"TOTAL_COUNT"`
}

// servletResponse wraps the servlet's JSON envelope. The record list
// arrives as a JSON string inside the envelope, not as a nested array.
type servletResponse struct {
	Result     string `json:"result"`
	HasNextRow bool   `json:"hasNextRow"`
}

// FetchWindow retrieves all records in one date window, paginating the
// servlet until it reports no further rows. maxRecords caps the result
// when positive. Records are returned in the service's order (newest
// first within the window).
func (c *Client) FetchWindow(ctx context.Context, window Window, maxRecords int) ([]Record, error) {
	fromStr := window.From.Format("20060102")
	toStr := window.To.Format("20060102")

	if err := c.openWindow(ctx, fromStr, toStr); err != nil {
		return nil, fmt.Errorf("opening search window: %w", err)
	}

	var records []Record
	fetched := 0
	total := -1

	for {
		if maxRecords > 0 && len(records) >= maxRecords {
			break
		}
		chunk := pageSize
		if maxRecords > 0 && maxRecords-len(records) < chunk {
			chunk = maxRecords - len(records)
		}

		raw, hasNext, err := c.fetchRows(ctx, fromStr, toStr, fetched+chunk)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			break
		}
		if total < 0 {
			total, _ = strconv.Atoi(raw[0].TotalCount)
		}

		// The servlet returns the whole window up to rowRange, so only
		// rows past the previous high-water mark are new.
		if fetched < len(raw) {
			for _, r := range raw[fetched:] {
				if maxRecords > 0 && len(records) >= maxRecords {
					break
				}
				records = append(records, parseRecord(r, c.baseURL))
			}
		}
		fetched = len(raw)

		if !hasNext {
			break
		}
		if total > 0 && fetched >= total {
			break
		}
	}
	return records, nil
}

// openWindow loads the search page, lifts the JSF ViewState token and
// form action out of it, and posts the date range back so the server
// session is scoped to the window.
func (c *Client) openWindow(ctx context.Context, fromStr, toStr string) error {
	params := url.Values{
		"sortDir":          {"0"},
		"sortByRecordDate": {"on"},
		"searchType":       {"0"},
		"category":         {"0"},
		"t1code":           {"-2"},
		"t2Gcode":          {"-2"},
		"t2code":           {"-2"},
		"documentType":     {"-1"},
		"rowRange":         {"0"},
		"lang":             {"EN"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+searchPagePath+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing search page: %w", err)
	}
	viewState, _ := doc.Find(`input[name="javax.faces.ViewState"]`).First().Attr("value")
	formAction, _ := doc.Find("form").First().Attr("action")

	submitURL := formAction
	if strings.HasPrefix(formAction, "/") {
		submitURL = c.baseURL + formAction
	}
	if submitURL == "" {
		submitURL = c.baseURL + searchPagePath
	}

	form := url.Values{
		"j_idt10":               {"j_idt10"},
		"j_idt10:loadMoreRange": {"100"},
		"javax.faces.ViewState": {viewState},
		"from":                  {fromStr},
		"to":                    {toStr},
	}
	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		submitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	postReq.Header.Set("User-Agent", userAgent)
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	postResp, err := c.httpClient.Do(postReq)
	if err != nil {
		return err
	}
	defer postResp.Body.Close()
	_, _ = io.Copy(io.Discard, postResp.Body)
	return nil
}

// fetchRows calls the JSON servlet for one page of the open window.
func (c *Client) fetchRows(ctx context.Context, fromStr, toStr string, rowRange int) ([]apiRecord, bool, error) {
	params := url.Values{
		"sortDir":       {"0"},
		"sortByOptions": {"DateTime"},
		"category":      {"0"},
		"market":        {"SEHK"},
		"stockId":       {"-1"},
		"documentType":  {"-1"},
		"fromDate":      {fromStr},
		"toDate":        {toStr},
		"title":         {""},
		"searchType":    {"0"},
		"t1code":        {"-2"},
		"t2Gcode":       {"-2"},
		"t2code":        {"-2"},
		"rowRange":      {strconv.Itoa(rowRange)},
		"lang":          {"E"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+servletPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", c.baseURL+searchPagePath)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("servlet returned status %d", resp.StatusCode)
	}

	var envelope servletResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("decoding servlet envelope: %w", err)
	}
	if envelope.Result == "" || envelope.Result == "null" {
		return nil, false, nil
	}

	var records []apiRecord
	if err := json.Unmarshal([]byte(envelope.Result), &records); err != nil {
		return nil, false, fmt.Errorf("decoding servlet records: %w", err)
	}
	return records, envelope.HasNextRow, nil
}
