package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"expensetracker/internal/core"
)

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantErr  bool
		category core.Category
		search   string
		start    string
	}{
		{
			name:  "empty query",
			query: url.Values{},
		},
		{
			name:     "all values provided",
			query:    url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}, "category": {"Food"}, "q": {"  coffee "}},
			category: "Food",
			search:   "coffee",
			start:    "2024-01-01",
		},
		{
			name:    "invalid start",
			query:   url.Values{"start": {"01/01/2024"}},
			wantErr: true,
		},
		{
			name:    "invalid end",
			query:   url.Values{"end": {"soon"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCriteria(tt.query)
			if tt.wantErr {
				if !errors.Is(err, errBadQuery) {
					t.Fatalf("ParseCriteria() error = %v, want errBadQuery", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCriteria() error = %v", err)
			}
			if c.Category != tt.category {
				t.Errorf("Category = %q, want %q", c.Category, tt.category)
			}
			if c.Search != tt.search {
				t.Errorf("Search = %q, want %q", c.Search, tt.search)
			}
			if tt.start != "" && c.Start.String() != tt.start {
				t.Errorf("Start = %s, want %s", c.Start, tt.start)
			}
		})
	}
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []core.Category
	}{
		{name: "missing means all", query: "", want: nil},
		{name: "blank means none", query: "categories=", want: []core.Category{}},
		{name: "comma separated", query: "categories=Food,%20Bills", want: []core.Category{"Food", "Bills"}},
		{name: "repeated keys", query: "categories=Food&categories=Other", want: []core.Category{"Food", "Other"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got := ParseCategories(q, "categories")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCategories() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseExportQuery(t *testing.T) {
	q, _ := url.ParseQuery("template=monthly-summary&format=json&filename=march&start=2024-03-01&end=2024-03-31&destination=local")
	got := ParseExportQuery(q)
	want := core.ExportRequest{
		Template:    "monthly-summary",
		Format:      "json",
		Filename:    "march",
		Start:       "2024-03-01",
		End:         "2024-03-31",
		Destination: "local",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseExportQuery() = %+v, want %+v", got, want)
	}
}

func newParser(body, contentType string) *RequestBodyParser {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        core.ExpenseInput
	}{
		{
			name:        "form body",
			body:        "date=2024-03-01&amount=12.5&category=Food&description=Lunch%01",
			contentType: "application/x-www-form-urlencoded",
			want:        core.ExpenseInput{Date: "2024-03-01", Amount: "12.5", Category: "Food", Description: "Lunch"},
		},
		{
			name:        "json body",
			body:        `{"date":"2024-03-01","amount":12.5,"category":"Food","description":" Lunch "}`,
			contentType: "application/json",
			want:        core.ExpenseInput{Date: "2024-03-01", Amount: "12.5", Category: "Food", Description: "Lunch"},
		},
		{
			name: "json sniffed without content type",
			body: `{"amount":"3"}`,
			want: core.ExpenseInput{Amount: "3"},
		},
		{
			name: "empty body",
			want: core.ExpenseInput{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(tt.body, tt.contentType)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.ExpenseInput(); got != tt.want {
				t.Errorf("ExpenseInput() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParserInvalidJSON(t *testing.T) {
	p := newParser(`{"amount":`, "application/json")
	if err := p.Parse(); err == nil {
		t.Fatal("Parse() error = nil, want error")
	}
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	p := newParser("description="+strings.Repeat("x", maxBodyBytes+1), "application/x-www-form-urlencoded")
	if err := p.Parse(); err == nil {
		t.Fatal("Parse() error = nil, want body size error")
	}
}

func TestScheduleInputEnabled(t *testing.T) {
	tests := []struct {
		body string
		want *bool
	}{
		{body: "format=csv", want: nil},
		{body: "enabled=on", want: ptr(true)},
		{body: "enabled=false", want: ptr(false)},
		{body: `{"enabled":true}`, want: ptr(true)},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			p := newParser(tt.body, "")
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got := p.ScheduleInput().Enabled
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("Enabled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExportRequestBody(t *testing.T) {
	t.Run("json keeps category array", func(t *testing.T) {
		p := newParser(`{"format":"csv","categories":["Food"," Bills"]}`, "application/json")
		req, err := p.ExportRequest()
		if err != nil {
			t.Fatalf("ExportRequest() error = %v", err)
		}
		if !reflect.DeepEqual(req.Categories, []core.Category{"Food", "Bills"}) {
			t.Errorf("Categories = %#v", req.Categories)
		}
	})

	t.Run("json without categories selects all", func(t *testing.T) {
		p := newParser(`{"format":"pdf"}`, "application/json")
		req, err := p.ExportRequest()
		if err != nil {
			t.Fatalf("ExportRequest() error = %v", err)
		}
		if req.Format != "pdf" || req.Categories != nil {
			t.Errorf("request = %+v", req)
		}
	})

	t.Run("form", func(t *testing.T) {
		p := newParser("format=json&categories=Food,Other", "application/x-www-form-urlencoded")
		req, err := p.ExportRequest()
		if err != nil {
			t.Fatalf("ExportRequest() error = %v", err)
		}
		if req.Format != "json" || len(req.Categories) != 2 {
			t.Errorf("request = %+v", req)
		}
	})
}
