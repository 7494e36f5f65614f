package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("BOM is stripped from the first header", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFSKU,Quantity\nA,1"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.True(t, parser.HasHeader("sku"))
		assert.True(t, parser.HasHeader("quantity"))
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = NewCSVParser(strings.NewReader("  \n\n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("sku,quantity\n\xff\xfe,1"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("multi-byte rune split by the peek window", func(t *testing.T) {
		content := "sku,reason\nA," + strings.Repeat("x", 4096-14) + "é,more"
		parser, err := NewCSVParser(strings.NewReader(content))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
	})

	t.Run("semicolon delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("sku;quantity\nA;3"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "3", row.Get("quantity"))
	})
}

func TestCSVParser_Rows(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader("sku, quantity ,reason\n A , 4 \n\nB,2,recount\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())
	assert.Empty(t, parser.MissingHeaders("sku", "quantity"))
	assert.Equal(t, []string{"mode"}, parser.MissingHeaders("mode"))

	first, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, first.LineNumber)
	assert.Equal(t, "A", first.Get("sku"))
	assert.Equal(t, "4", first.Get("quantity"))
	assert.Equal(t, "", first.Get("reason"), "short rows are padded")

	second, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "recount", second.Get("reason"))

	_, err = parser.ReadRow()
	assert.Equal(t, io.EOF, err)
}

func TestCSVParser_MissingHeader(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader(" , \n"))
	require.NoError(t, err)
	assert.ErrorIs(t, parser.ParseHeader(), ErrMissingHeader)
}

func TestCSVParser_ReadAllRowsLimit(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader("sku,quantity\nA,1\nB,2\nC,3\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	rows, errs := parser.ReadAllRows(2)
	assert.Len(t, rows, 3)
	require.True(t, errs.HasErrors())
	assert.Equal(t, ErrCodeTooManyRows, errs.Errors()[0].Code)
	assert.Equal(t, 4, errs.Errors()[0].Row)
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection()
	assert.False(t, ec.HasErrors())
	assert.Equal(t, "no errors", ec.String())

	for i := 0; i < maxCollectedErrors+5; i++ {
		ec.AddRequired(i+2, "sku")
	}
	ec.AddInvalid(200, "quantity", ErrCodeInvalidType, "expected a whole number", "ten")

	assert.Equal(t, maxCollectedErrors+6, ec.TotalCount())
	assert.Len(t, ec.Errors(), maxCollectedErrors)
	assert.Contains(t, ec.String(), "(showing first 100)")
	assert.Equal(t, "row 2, column 'sku': field 'sku' is required", ec.Errors()[0].Error())
	assert.Equal(t, "row 9: broken", NewRowError(9, "", ErrCodeMalformedRow, "broken").Error())
}
