// Package portal drives the procurement portal UI: navigation to the search
// form, keyword submission, and extraction of list rows and detail pages.
package portal

import "fmt"

// The portal is a WebSquare-style single page application with stable element
// ids. Selectors below mirror the production page; overriding them only
// requires a rebuild, they are not runtime configuration.
const (
	// selSearchButton is the anchor element whose presence confirms the
	// search form is reachable.
	selSearchButton  = "#buttonSearch"
	selKeywordInput  = "#bidNm"
	selResultGrid    = "#grdBidList"
	selMainContent   = "#contents"
	selPageSizeBox   = "#recordCountPerPage"
	selExcludeClosed = "#chkExcptEnd"

	// Menu path from the landing page to the bid announcement search form.
	selMenuBid        = "#mf_wfm_gnb_wfm_gnbMenu_genMenu1"
	selMenuBidList    = "#mf_wfm_gnb_wfm_gnbMenu_genMenu1_sub2"
	selSearchFormLink = "#mf_wfm_gnb_wfm_gnbMenu_genMenu1_sub2_link"
)

// closeAffordances are in-page controls that dismiss notice pop-ups and promo
// layers, tried in order after secondary windows are closed.
var closeAffordances = []string{
	".w2window_close",
	".popup_close",
	"#notice_close",
	"button[aria-label='close']",
	".layer_close a",
}

// Grid column positions for one result row.
const (
	colCategory = 0
	colNumber   = 1
	colTitle    = 2
	colAgency   = 3
	colPosted   = 4
	colDates    = 5
	colStage    = 6
)

// cellSelector returns the selector for one grid cell by row and column.
func cellSelector(row, col int) string {
	return fmt.Sprintf("#grdBidList_cell_%d_%d", row, col)
}

// titleLinkSelector returns the selector for the detail link inside the title
// cell of a row.
func titleLinkSelector(row int) string {
	return fmt.Sprintf("#grdBidList_cell_%d_%d a", row, colTitle)
}

// detailFieldLabels maps detail-page table labels to DetailRecord fields. The
// field set is closed; labels not present here are ignored. Labels appear in
// both Korean and English because the portal serves a bilingual template.
var detailFieldLabels = map[string]string{
	"수요기관":   "agency_division",
	"공고기관":   "agency_division",
	"계약방법":   "contract_method",
	"입찰방식":   "bid_type",
	"업종제한":   "industry_limit",
	"참가제한업종": "industry_limit",
	"지역제한":   "region_limit",
	"추정가격":   "estimated_price",
	"기초금액":   "budget_price",
	"진행상태":   "progress_info",
	"담당자":    "contact_name",
	"전화번호":   "contact_phone",
	"연락처":    "contact_phone",

	"demand agency":   "agency_division",
	"contract method": "contract_method",
	"bid type":        "bid_type",
	"industry limit":  "industry_limit",
	"region limit":    "region_limit",
	"estimated price": "estimated_price",
	"budget price":    "budget_price",
	"progress":        "progress_info",
	"contact":         "contact_name",
	"phone":           "contact_phone",
}

// attachmentLabel marks table rows whose value cell holds attachment links.
const attachmentLabel = "첨부파일"
