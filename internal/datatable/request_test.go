package datatable

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	values := url.Values{
		"draw":                      {"3"},
		"start":                     {"20"},
		"length":                    {"25"},
		"search[value]":             {"  North "},
		"search[regex]":             {"false"},
		"order[0][column]":          {"1"},
		"order[0][dir]":             {"DESC"},
		"columns[0][data]":          {"code"},
		"columns[0][searchable]":    {"false"},
		"columns[1][data]":          {"name"},
		"columns[1][orderable]":     {"true"},
		"columns[1][search][value]": {"kan"},
		"columns[1][search][regex]": {"false"},
		"status":                    {"active"},
		"_":                         {"1700000000"},
		"farm_id":                   {""},
	}

	req, err := ParseRequest(values)
	require.NoError(t, err)

	assert.Equal(t, 3, req.Draw)
	assert.Equal(t, 20, req.Start)
	assert.Equal(t, 25, req.Length)
	assert.Equal(t, "North", req.Search)
	require.Len(t, req.Columns, 2)
	assert.Equal(t, "code", req.Columns[0].Data)
	assert.False(t, req.Columns[0].Searchable)
	assert.True(t, req.Columns[0].Orderable)
	assert.Equal(t, "kan", req.Columns[1].Search)
	require.Len(t, req.Order, 1)
	assert.Equal(t, Order{Column: 1, Dir: "desc"}, req.Order[0])
	assert.Equal(t, map[string]string{"status": "active"}, req.Filters)
}

func TestParseRequestLength(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultLength},
		{"-1", -1},
		{"0", DefaultLength},
		{"5000", MaxLength},
		{"50", 50},
	}
	for _, tt := range tests {
		req, err := ParseRequest(url.Values{"length": {tt.raw}})
		require.NoError(t, err)
		assert.Equal(t, tt.want, req.Length, "length %q", tt.raw)
	}
}

func TestParseRequestRejectsMalformed(t *testing.T) {
	cases := []url.Values{
		{"draw": {"x"}},
		{"start": {"-5"}},
		{"order[0][column]": {"first"}},
		{"columns[500][data]": {"id"}},
		{"columns[a][data]": {"id"}},
	}
	for _, v := range cases {
		_, err := ParseRequest(v)
		assert.ErrorIs(t, err, ErrBadRequest, "%v", v)
	}
}
