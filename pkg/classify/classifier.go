// Package classify assigns a document type from filename and content keywords
package classify

import (
	"strings"
)

// DocumentType is the coarse category assigned to an uploaded document
type DocumentType string

const (
	DocumentTypeInvoice   DocumentType = "invoice"
	DocumentTypeReceipt   DocumentType = "receipt"
	DocumentTypeContract  DocumentType = "contract"
	DocumentTypeStatement DocumentType = "statement"
	DocumentTypeTax       DocumentType = "tax"
	DocumentTypeInsurance DocumentType = "insurance"
	DocumentTypeWarranty  DocumentType = "warranty"
	DocumentTypeOther     DocumentType = "other"
)

// Confidence bands: filename hits are more reliable than content hits
const (
	filenameBaseConfidence = 0.75
	filenameMaxConfidence  = 0.95
	contentBaseConfidence  = 0.65
	contentMaxConfidence   = 0.85
	fallbackConfidence     = 0.50
	confidenceStep         = 0.05
)

// filenameKeywords are matched against the lower-cased filename
var filenameKeywords = map[DocumentType][]string{
	DocumentTypeInvoice:   {"invoice", "inv-", "bill"},
	DocumentTypeReceipt:   {"receipt", "rcpt"},
	DocumentTypeContract:  {"contract", "agreement", "lease", "nda"},
	DocumentTypeStatement: {"statement", "stmt"},
	DocumentTypeTax:       {"tax", "1099", "w-2", "w2", "irs", "1040"},
	DocumentTypeInsurance: {"insurance", "policy", "claim"},
	DocumentTypeWarranty:  {"warranty", "guarantee"},
}

// contentKeywords are matched against the lower-cased content preview
var contentKeywords = map[DocumentType][]string{
	DocumentTypeInvoice:   {"invoice", "amount due", "balance due", "remit to", "payment due"},
	DocumentTypeReceipt:   {"receipt", "thank you for your purchase", "total paid", "change due"},
	DocumentTypeContract:  {"agreement", "hereinafter", "terms and conditions", "party of the first part", "witnesseth"},
	DocumentTypeStatement: {"statement period", "opening balance", "closing balance", "account summary"},
	DocumentTypeTax:       {"internal revenue service", "taxable income", "tax year", "form 1099", "form w-2"},
	DocumentTypeInsurance: {"policyholder", "premium", "coverage", "deductible"},
	DocumentTypeWarranty:  {"warranty", "guaranteed against defects", "warranty period"},
}

// typeOrder fixes scan order so equal hit counts classify deterministically
var typeOrder = []DocumentType{
	DocumentTypeInvoice,
	DocumentTypeReceipt,
	DocumentTypeContract,
	DocumentTypeStatement,
	DocumentTypeTax,
	DocumentTypeInsurance,
	DocumentTypeWarranty,
}

// Classify assigns a document type from the filename first, then the content
// preview, falling back to other at 0.50. It is stateless and pure.
func Classify(filename string, contentPreview string) (DocumentType, float64) {
	if docType, hits := bestMatch(strings.ToLower(filename), filenameKeywords); hits > 0 {
		return docType, bandConfidence(filenameBaseConfidence, filenameMaxConfidence, hits)
	}

	if docType, hits := bestMatch(strings.ToLower(contentPreview), contentKeywords); hits > 0 {
		return docType, bandConfidence(contentBaseConfidence, contentMaxConfidence, hits)
	}

	return DocumentTypeOther, fallbackConfidence
}

// bestMatch returns the type with the most keyword hits in the text
func bestMatch(text string, keywords map[DocumentType][]string) (DocumentType, int) {
	if text == "" {
		return DocumentTypeOther, 0
	}

	best := DocumentTypeOther
	bestHits := 0
	for _, docType := range typeOrder {
		hits := 0
		for _, keyword := range keywords[docType] {
			if strings.Contains(text, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			best = docType
			bestHits = hits
		}
	}
	return best, bestHits
}

// bandConfidence scales confidence within a band by additional keyword hits
func bandConfidence(base, ceiling float64, hits int) float64 {
	confidence := base + confidenceStep*float64(hits-1)
	if confidence > ceiling {
		return ceiling
	}
	return confidence
}
