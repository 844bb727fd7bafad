package parsing

import "strings"

// Confidence weights per extracted field. They sum to 1.0 so the score stays
// in [0, 1] regardless of which fields were found.
const (
	amountWeight   = 0.40
	merchantWeight = 0.25
	dateWeight     = 0.25
	numberWeight   = 0.10
)

// Parse turns raw recognized text into a structured receipt. It is pure and
// deterministic: identical inputs always yield identical outputs, and no
// extracted field depends on the wall clock. Callers assign created-at
// timestamps themselves.
func Parse(rawText string, hint Source) ParsedReceipt {
	if strings.TrimSpace(rawText) == "" {
		return ParsedReceipt{
			Source:            sourceOrDefault(hint),
			RawText:           rawText,
			Confidence:        0.0,
			SuggestedCategory: CategoryOther,
		}
	}

	receipt := ParsedReceipt{
		Source:  detectSource(rawText, hint),
		RawText: rawText,
	}

	receipt.Amount = extractAmount(rawText)
	receipt.Merchant = extractMerchant(rawText)
	receipt.Date = extractDate(rawText)
	receipt.ReceiptNumber = extractReceiptNumber(rawText)
	receipt.SuggestedCategory = suggestCategory(rawText)
	receipt.Confidence = scoreConfidence(receipt)

	return receipt
}

// detectSource classifies the text's provenance. A caller hint other than the
// generic camera default is trusted as-is; otherwise bank marker tokens in the
// text decide, falling back to camera.
func detectSource(rawText string, hint Source) Source {
	if hint != "" && hint != SourceCamera {
		return hint
	}
	lower := strings.ToLower(rawText)
	switch {
	case strings.Contains(lower, "kaspi"):
		return SourceKaspiPDF
	case strings.Contains(lower, "halyk"), strings.Contains(lower, "народный банк"):
		return SourceHalykPDF
	default:
		return SourceCamera
	}
}

func sourceOrDefault(hint Source) Source {
	if hint == "" {
		return SourceCamera
	}
	return hint
}

// scoreConfidence computes the weighted completeness score over the four
// extractable fields. The score is advisory; it never gates validity.
func scoreConfidence(r ParsedReceipt) float64 {
	score := 0.0
	if r.Amount != nil {
		score += amountWeight
	}
	if r.Merchant != "" {
		score += merchantWeight
	}
	if r.Date != nil {
		score += dateWeight
	}
	if r.ReceiptNumber != "" {
		score += numberWeight
	}
	return score
}
