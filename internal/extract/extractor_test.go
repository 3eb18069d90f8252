package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/browser"
)

type fetchFunc func(ctx context.Context, url string) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, url string) (string, error) { return f(ctx, url) }

type oracleFunc func(ctx context.Context, prompt string, image []byte) (string, error)

func (f oracleFunc) Complete(ctx context.Context, prompt string, image []byte) (string, error) {
	return f(ctx, prompt, image)
}

const richDetailHTML = `<table>
	<tr><th>공고기관</th><td>조달청</td></tr>
	<tr><th>계약방법</th><td>일반경쟁</td></tr>
	<tr><th>입찰방식</th><td>전자입찰</td></tr>
	<tr><th>지역제한</th><td>서울특별시</td></tr>
	<tr><th>추정가격</th><td>100,000,000원</td></tr>
</table>`

const sparseDetailHTML = `<table>
	<tr><th>공고기관</th><td>조달청</td></tr>
	<tr><th>계약방법</th><td>일반경쟁</td></tr>
</table>`

func admittedRecord() bid.AdmittedRecord {
	return bid.AdmittedRecord{
		CandidateRecord: bid.CandidateRecord{
			Number:    "20240517001-00",
			Title:     "데이터 분석 용역",
			DetailURL: "https://portal.example/detail/20240517001-00",
		},
		Keyword: "AI",
	}
}

func staticFetcher(html string) fetchFunc {
	return func(ctx context.Context, url string) (string, error) { return html, nil }
}

func TestExtractDOMPassSufficient(t *testing.T) {
	t.Parallel()
	oracleCalled := false
	orc := oracleFunc(func(ctx context.Context, prompt string, image []byte) (string, error) {
		oracleCalled = true
		return "{}", nil
	})

	e := New(browser.NewFake(), staticFetcher(richDetailHTML), orc, nil,
		Config{Strategy: StrategyAIText, MinFields: 5}, nil)
	detail := e.Extract(context.Background(), admittedRecord())

	require.False(t, oracleCalled, "a full DOM pass must not reach the oracle")
	require.Equal(t, "dom", detail.ExtractedVia)
	require.Equal(t, 5, detail.FieldCount())
	require.Equal(t, "조달청", detail.AgencyDivision)
}

func TestExtractOracleFillsGapsDOMWins(t *testing.T) {
	t.Parallel()
	orc := oracleFunc(func(ctx context.Context, prompt string, image []byte) (string, error) {
		require.Contains(t, prompt, "20240517001-00")
		require.Contains(t, prompt, "공고기관: 조달청")
		return `{"agency_division": "엉뚱한 기관", "region_limit": "부산광역시", "contact_name": "김담당"}`, nil
	})

	e := New(browser.NewFake(), staticFetcher(sparseDetailHTML), orc, nil,
		Config{Strategy: StrategyAIText, MinFields: 5}, nil)
	detail := e.Extract(context.Background(), admittedRecord())

	require.Equal(t, "dom+ai_text", detail.ExtractedVia)
	require.Equal(t, "조달청", detail.AgencyDivision, "the DOM value is authoritative")
	require.Equal(t, "부산광역시", detail.RegionLimit)
	require.Equal(t, "김담당", detail.ContactName)
}

func TestExtractOracleFailureKeepsPartialRecord(t *testing.T) {
	t.Parallel()
	orc := oracleFunc(func(ctx context.Context, prompt string, image []byte) (string, error) {
		return "", errors.New("model overloaded")
	})

	e := New(browser.NewFake(), staticFetcher(sparseDetailHTML), orc, nil,
		Config{Strategy: StrategyAIText, MinFields: 5}, nil)
	detail := e.Extract(context.Background(), admittedRecord())

	require.Equal(t, "dom", detail.ExtractedVia)
	require.Equal(t, 2, detail.FieldCount())
	require.Equal(t, "일반경쟁", detail.ContractMethod)
}

func TestExtractDOMOnlyNeverCallsOracle(t *testing.T) {
	t.Parallel()
	orc := oracleFunc(func(ctx context.Context, prompt string, image []byte) (string, error) {
		t.Fatal("oracle must not run under dom_only")
		return "", nil
	})

	e := New(browser.NewFake(), staticFetcher(sparseDetailHTML), orc, nil,
		Config{Strategy: StrategyDOMOnly, MinFields: 5}, nil)
	detail := e.Extract(context.Background(), admittedRecord())
	require.Equal(t, "dom", detail.ExtractedVia)
}

func TestExtractWithoutDetailURLDegradesToIdentity(t *testing.T) {
	t.Parallel()
	rec := admittedRecord()
	rec.DetailURL = ""

	e := New(browser.NewFake(), nil, nil, nil, Config{Strategy: StrategyDOMOnly}, nil)
	detail := e.Extract(context.Background(), rec)

	require.Equal(t, rec.Number, detail.Number)
	require.Zero(t, detail.FieldCount())
}

func TestExtractFetcherFailureFallsBackToBrowser(t *testing.T) {
	t.Parallel()
	f := browser.NewFake()
	f.HTML["html"] = richDetailHTML
	fetcher := fetchFunc(func(ctx context.Context, url string) (string, error) {
		return "", errors.New("connection refused")
	})

	e := New(f, fetcher, nil, nil, Config{Strategy: StrategyDOMOnly}, nil)
	detail := e.Extract(context.Background(), admittedRecord())

	require.Equal(t, 5, detail.FieldCount())
	require.Contains(t, f.CallLog(), "Navigate:https://portal.example/detail/20240517001-00")
}

func TestExtractVisionSendsScreenshot(t *testing.T) {
	t.Parallel()
	f := browser.NewFake()
	f.ScreenshotPNG = []byte{0x89, 'P', 'N', 'G'}

	var gotImage []byte
	orc := oracleFunc(func(ctx context.Context, prompt string, image []byte) (string, error) {
		gotImage = image
		return `{"bid_type": "전자입찰"}`, nil
	})

	e := New(f, staticFetcher(sparseDetailHTML), orc, nil,
		Config{Strategy: StrategyAIVision, MinFields: 5}, nil)
	detail := e.Extract(context.Background(), admittedRecord())

	require.Equal(t, f.ScreenshotPNG, gotImage)
	require.Equal(t, "dom+ai_vision", detail.ExtractedVia)
	require.Equal(t, "전자입찰", detail.BidType)
}
