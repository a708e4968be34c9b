package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"expensekeeper/internal/core"
)

type recordedCall struct {
	method string
	path   string
	values [][]any
}

type fakeSheets struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{method: r.Method, path: r.URL.Path}
	var body struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	call.values = body.Values

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":clear"):
		_, _ = w.Write([]byte(`{"clearedRange":"Expenses!A1:H10"}`))
	case r.Method == http.MethodPut:
		_, _ = w.Write([]byte(`{"updatedRange":"Expenses!A1:H3"}`))
	default:
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "sheet-1", "", time.UTC,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	require.NoError(t, err)
	return c, fake
}

func sample() []core.Expense {
	return []core.Expense{
		{VendorName: "Market", ItemBought: "Fruit", Amount: decimal.RequireFromString("4.2"), Date: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), Category: core.CategoryFood},
		{VendorName: "Rail", ItemBought: "Ticket", Amount: decimal.RequireFromString("20"), Date: time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), Category: core.CategoryTravel, Recurrence: core.Daily(), Tags: []string{"work"}},
	}
}

func TestReplace(t *testing.T) {
	c, fake := newTestClient(t)

	rng, err := c.Replace(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, "Expenses!A1:H3", rng)

	require.Len(t, fake.calls, 2)
	assert.Equal(t, http.MethodPost, fake.calls[0].method)
	assert.Contains(t, fake.calls[0].path, "/spreadsheets/sheet-1/values/Expenses!A:H:clear")

	update := fake.calls[1]
	assert.Equal(t, http.MethodPut, update.method)
	require.Len(t, update.values, 3)
	assert.Equal(t, "Date", update.values[0][0])
	assert.Equal(t, []any{"02 Jun 2024", "20.00", "Rail", "Ticket", "Travel", "Yes", "work", ""}, update.values[2])
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	_, err := NewWithOptions(context.Background(), " ", "", nil, goption.WithoutAuthentication())
	assert.Error(t, err)

	_, err = New(context.Background(), "sheet-1", "", Credentials{}, nil)
	assert.ErrorContains(t, err, "missing service account credentials")
}
