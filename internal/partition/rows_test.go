package partition

import (
	"testing"
	"time"

	"flipview/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRowsCanonicalizesAliases(t *testing.T) {
	body := "\xef\xbb\xbfItem Name,Qty,Amount Spent,Received,Profit,Opened Time,Closed Time,State,Hash\n" +
		`"Dragon bones, noted",1000,"1,500,000",'1600000,"(5,000)",2024-01-15T09:00:00Z,2024-01-15T10:00:00Z,Sold,abc123` + "\n" +
		",,,,,,,,\n" +
		"Rune bar,5,10k,,,1705309200,,buying,\n"

	recs, err := DecodeRows("01-15-2024", []byte(body))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "Dragon bones, noted", first.Entity)
	assert.Equal(t, int64(1000), first.Quantity)
	assert.Equal(t, int64(1_500_000), first.Spent)
	require.NotNil(t, first.Received)
	assert.Equal(t, int64(1_600_000), *first.Received)
	assert.Equal(t, int64(-5_000), first.Profit)
	assert.Equal(t, types.StatusFinished, first.Status)
	assert.Equal(t, "abc123", first.ID)
	assert.Equal(t, "01-15-2024", first.Partition)
	require.NotNil(t, first.Closed)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), *first.Closed)

	second := recs[1]
	assert.Equal(t, "Rune bar", second.Entity)
	assert.Equal(t, int64(0), second.Spent, "shorthand is not applied to row cells")
	assert.Nil(t, second.Received)
	assert.Nil(t, second.Closed)
	assert.Equal(t, types.StatusActive, second.Status)
	assert.Equal(t, time.Unix(1705309200, 0).UTC(), second.Opened)
	assert.NotEmpty(t, second.ID)
}

func TestDecodeRowsDerivesProfitWhenMissing(t *testing.T) {
	body := "item,spent,received,tax\nX,100,180,2\n"
	recs, err := DecodeRows("01-15-2024", []byte(body))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(78), recs[0].Profit)
}

func TestDecodeRowsStableGeneratedIDs(t *testing.T) {
	body := []byte("item,spent\nX,100\n")
	a, err := DecodeRows("01-15-2024", body)
	require.NoError(t, err)
	b, err := DecodeRows("01-15-2024", body)
	require.NoError(t, err)
	c, err := DecodeRows("01-16-2024", body)
	require.NoError(t, err)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.NotEqual(t, a[0].ID, c[0].ID)
}

func TestDecodeRowsEdgeCases(t *testing.T) {
	recs, err := DecodeRows("01-15-2024", nil)
	assert.NoError(t, err)
	assert.Empty(t, recs)

	_, err = DecodeRows("01-15-2024", []byte("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, errNoEntityColumn)

	recs, err = DecodeRows("01-15-2024", []byte("item\n"))
	assert.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseTimestamp(t *testing.T) {
	ms, ok := ParseTimestamp("1705312800000")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), ms)

	_, ok = ParseTimestamp("yesterday")
	assert.False(t, ok)

	local, ok := ParseTimestamp("2024-01-15 10:00:00")
	require.True(t, ok)
	assert.Equal(t, 10, local.Hour())
}
