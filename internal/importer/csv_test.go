package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

var cats = []core.Category{
	{ID: "groceries", Name: "Groceries", Color: "#4CAF50"},
	{ID: "salary", Name: "Salary", Color: "#2196F3"},
}

func TestParseCommaSeparated(t *testing.T) {
	in := `date,amount,flow,category,description
2024-03-01,2500.00,income,salary,March pay
2024-03-02,42.5,expense,Groceries,Market
2024-03-03,"1,234.56",,,Bonus
2024-03-04,"-1,234.56",,,Laptop
2024-03-05,-€12.50,,,Card fee
`
	txs, err := New(cats).Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 5)

	assert.Equal(t, core.FlowIncome, txs[0].Flow)
	assert.Equal(t, int64(250000), txs[0].Amount.Cents)
	assert.Equal(t, "salary", txs[0].Category.ID)
	assert.Equal(t, "March pay", txs[0].Description)

	assert.Equal(t, core.FlowExpense, txs[1].Flow)
	assert.Equal(t, int64(4250), txs[1].Amount.Cents)
	assert.Equal(t, "groceries", txs[1].Category.ID, "category matched by name")

	assert.Equal(t, core.FlowIncome, txs[2].Flow)
	assert.Equal(t, int64(123456), txs[2].Amount.Cents)
	assert.Equal(t, core.FlowExpense, txs[3].Flow)
	assert.Equal(t, int64(123456), txs[3].Amount.Cents)
	assert.Equal(t, core.FlowExpense, txs[4].Flow)
	assert.Equal(t, int64(1250), txs[4].Amount.Cents)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		cents    int64
		negative bool
	}{
		{"12,50", 1250, false},
		{"12.50", 1250, false},
		{"1.234,56", 123456, false},
		{"1,234.56", 123456, false},
		{"-1,234.56", 123456, true},
		{"-1.234.567,89", 123456789, true},
		{"1,234,567.89", 123456789, false},
		{"€10,00", 1000, false},
		{"-€12,50", 1250, true},
		{"€-12,50", 1250, true},
		{"+€ 3,00", 300, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cents, negative, err := parseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.cents, cents)
			assert.Equal(t, tt.negative, negative)
		})
	}

	for _, bad := range []string{"", "abc", "1.234,56.7", "1,2,3", "€", "0,00"} {
		_, _, err := parseAmount(bad)
		assert.ErrorIs(t, err, core.ErrInvalidAmount, "input %q", bad)
	}
}

func TestParseSemicolonSignedAmounts(t *testing.T) {
	in := "date;amount;category;description\n" +
		"2024-03-05;-1.234,56;Rent;Flat\n" +
		"2024-03-06;€10,00;;Refund\n" +
		";;;\n"
	im := New(cats)
	txs, err := im.Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, core.FlowExpense, txs[0].Flow)
	assert.Equal(t, int64(123456), txs[0].Amount.Cents)
	assert.Nil(t, txs[0].Category)

	assert.Equal(t, core.FlowIncome, txs[1].Flow)
	assert.Equal(t, int64(1000), txs[1].Amount.Cents)
	assert.Nil(t, txs[1].Category)

	assert.Equal(t, map[string]int{"Rent": 1}, im.Unknown())
}

func TestParseKeepsID(t *testing.T) {
	in := "id,date,amount,flow\nabc,2024-01-31,1,expense\n"
	txs, err := New(nil).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "abc", txs[0].ID)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		is   error
	}{
		{
			name: "bad date",
			in:   "date,amount\n2024-13-01,1\n",
			want: "line 2",
		},
		{
			name: "bad amount on third line",
			in:   "date,amount\n2024-01-01,1\n2024-01-02,abc\n",
			want: "line 3",
			is:   core.ErrInvalidAmount,
		},
		{
			name: "mixed separators out of order",
			in:   "date,amount\n2024-01-01,\"1.234,56.7\"\n",
			want: "line 2",
			is:   core.ErrInvalidAmount,
		},
		{
			name: "bad flow",
			in:   "date,amount,flow\n2024-01-01,1,transfer\n",
			is:   core.ErrInvalidFlow,
		},
		{
			name: "header only",
			in:   "date,amount\n",
			is:   ErrNoRows,
		},
		{
			name: "empty",
			in:   "",
			is:   ErrNoRows,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(cats).Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n1,2;3")))
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b\n")))
	assert.Equal(t, ',', sniffDelimiter(nil))
}
