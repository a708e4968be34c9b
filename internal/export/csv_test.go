package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensekeeper/internal/core"
)

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2024, 6, 1, 9, 30, 5, 0, time.UTC))
	assert.Equal(t, "expenses_20240601_093005.csv", got)
}

func TestWriteCSV(t *testing.T) {
	expenses := []core.Expense{
		{
			VendorName: `Joe's "Best" Pizza`,
			ItemBought: "Margherita",
			Amount:     decimal.RequireFromString("12.5"),
			Date:       time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
			Category:   core.CategoryFood,
			Recurrence: core.NoRecurrence(),
			Tags:       []string{"dinner", "friends"},
		},
		{
			VendorName: "Gym",
			ItemBought: "Membership",
			Amount:     decimal.RequireFromString("30"),
			Date:       time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
			Category:   core.CategoryHealth,
			Recurrence: core.Monthly(3),
			Notes:      "line one, line two",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, expenses, time.UTC))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Amount,Vendor,Item,Category,Recurring,Tags,Notes", lines[0])
	assert.Equal(t, `01 Jun 2024,12.50,"Joe's ""Best"" Pizza","Margherita","Food",No,"dinner,friends",""`, lines[1])
	assert.Equal(t, `03 Jun 2024,30.00,"Gym","Membership","Health",Yes,"","line one, line two"`, lines[2])

	// The output is valid CSV.
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, `Joe's "Best" Pizza`, records[1][2])
	assert.Equal(t, "dinner,friends", records[1][6])
}

func TestRowUsesLocation(t *testing.T) {
	rome := time.FixedZone("CEST", 2*60*60)
	e := core.Expense{
		Amount: decimal.RequireFromString("1"),
		Date:   time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "02 Jun 2024", Row(e, rome)[0])
	assert.Equal(t, "01 Jun 2024", Row(e, time.UTC)[0])
}
