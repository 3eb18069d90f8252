package portal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/narabid/bid-crawler/internal/bid"
)

// ParseDetailHTML runs the DOM pass over a detail page: every table is
// scanned, header cells are paired with their adjacent value cells, and only
// labels present in the closed field dictionary are written. Attachments are
// the one open-ended capture: every link in an attachment row is collected as
// a {name, url} pair. The concatenated visible table text is returned
// alongside the record for use as an oracle prompt.
func ParseDetailHTML(html, number string) (bid.DetailRecord, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return bid.DetailRecord{Number: number}, "", err
	}

	rec := bid.DetailRecord{Number: number}
	var text strings.Builder

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			parseDetailRow(row, &rec, &text)
		})
	})

	return rec, strings.TrimSpace(text.String()), nil
}

func parseDetailRow(row *goquery.Selection, rec *bid.DetailRecord, text *strings.Builder) {
	cells := row.Find("th, td")
	// Header/value cells alternate within a row; a row can carry several
	// label/value pairs.
	for i := 0; i+1 < cells.Length(); i += 2 {
		label := cleanLabel(cells.Eq(i).Text())
		valueCell := cells.Eq(i + 1)
		value := strings.TrimSpace(valueCell.Text())
		if label == "" {
			continue
		}

		text.WriteString(label)
		text.WriteString(": ")
		text.WriteString(value)
		text.WriteString("\n")

		if strings.Contains(label, attachmentLabel) {
			collectAttachments(valueCell, rec)
			continue
		}
		if field, ok := detailFieldLabels[label]; ok && value != "" {
			setDetailField(rec, field, value)
		}
	}
}

func collectAttachments(cell *goquery.Selection, rec *bid.DetailRecord) {
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		if name == "" && href == "" {
			return
		}
		rec.Attachments = append(rec.Attachments, bid.Attachment{Name: name, URL: href})
	})
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	// The portal decorates required-field labels with asterisks and colons.
	return strings.Trim(s, "*: \t ")
}

// setDetailField writes one dictionary field. Values already present are kept;
// within a page the first table mentioning a label is the authoritative one.
func setDetailField(rec *bid.DetailRecord, field, value string) {
	target := map[string]*string{
		"agency_division": &rec.AgencyDivision,
		"contract_method": &rec.ContractMethod,
		"bid_type":        &rec.BidType,
		"industry_limit":  &rec.IndustryLimit,
		"region_limit":    &rec.RegionLimit,
		"estimated_price": &rec.EstimatedPrice,
		"budget_price":    &rec.BudgetPrice,
		"progress_info":   &rec.ProgressInfo,
		"contact_name":    &rec.ContactName,
		"contact_phone":   &rec.ContactPhone,
	}[field]
	if target == nil || *target != "" {
		return
	}
	*target = value
}
