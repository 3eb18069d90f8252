package extract

import "github.com/narabid/bid-crawler/internal/bid"

// mergeAIFields writes oracle-recovered values into detail, but only where
// the DOM pass left the field empty. The DOM value is authoritative whenever
// both tiers produced one.
func mergeAIFields(detail *bid.DetailRecord, ai map[string]string) {
	fields := map[string]*string{
		"agency_division": &detail.AgencyDivision,
		"contract_method": &detail.ContractMethod,
		"bid_type":        &detail.BidType,
		"industry_limit":  &detail.IndustryLimit,
		"region_limit":    &detail.RegionLimit,
		"estimated_price": &detail.EstimatedPrice,
		"budget_price":    &detail.BudgetPrice,
		"progress_info":   &detail.ProgressInfo,
		"contact_name":    &detail.ContactName,
		"contact_phone":   &detail.ContactPhone,
	}
	for key, target := range fields {
		if *target != "" {
			continue
		}
		if v, ok := ai[key]; ok && v != "" {
			*target = v
		}
	}
}
