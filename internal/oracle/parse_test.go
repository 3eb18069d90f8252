package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSONFencedBlock(t *testing.T) {
	t.Parallel()
	reply := "Here are the extracted fields:\n```json\n{\"contract_method\": \"일반경쟁\", \"bid_type\": \"전자입찰\"}\n```\nLet me know if you need more."

	got := ParseJSON(reply)
	require.Equal(t, map[string]string{
		"contract_method": "일반경쟁",
		"bid_type":        "전자입찰",
	}, got)
}

func TestParseJSONBraceSpan(t *testing.T) {
	t.Parallel()
	reply := `Sure. The page contains {"region_limit": "서울특별시"} according to the table.`

	got := ParseJSON(reply)
	require.Equal(t, map[string]string{"region_limit": "서울특별시"}, got)
}

func TestParseJSONWholeText(t *testing.T) {
	t.Parallel()
	got := ParseJSON(`  {"contact_name": "홍길동"}  `)
	require.Equal(t, map[string]string{"contact_name": "홍길동"}, got)
}

func TestParseJSONDropsNonStringValues(t *testing.T) {
	t.Parallel()
	got := ParseJSON(`{"estimated_price": "1,000,000", "field_count": 3, "attachments": ["a.pdf"]}`)
	require.Equal(t, map[string]string{"estimated_price": "1,000,000"}, got)
}

func TestParseJSONGarbageYieldsEmptyMap(t *testing.T) {
	t.Parallel()
	for _, reply := range []string{
		"",
		"I could not find any structured data on that page.",
		"```json\nnot json at all\n```",
		"{broken: json",
	} {
		got := ParseJSON(reply)
		require.NotNil(t, got)
		require.Empty(t, got, "reply %q", reply)
	}
}

func TestParseJSONPrefersFencedBlockOverProseBraces(t *testing.T) {
	t.Parallel()
	reply := "{\"contract_method\": \"wrong\"} is what I saw first, but the final answer is:\n```json\n{\"contract_method\": \"수의계약\"}\n```"

	got := ParseJSON(reply)
	require.Equal(t, "수의계약", got["contract_method"])
}
