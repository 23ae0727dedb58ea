package extract

import "regexp"

// classificationRule maps a regex group to a domain or industry label.
// First matching rule wins per axis.
type classificationRule struct {
	label   string
	pattern *regexp.Regexp
}

var domainRules = []classificationRule{
	{"finance", regexp.MustCompile(`(?i)\b(revenue|ledger|invoice|accounting|budget|fiscal|gl|accounts? (payable|receivable)|balance sheet|p&l)\b`)},
	{"sales", regexp.MustCompile(`(?i)\b(sales|pipeline|opportunit(y|ies)|quota|deal|crm|lead(s)?\b|conversion)\b`)},
	{"marketing", regexp.MustCompile(`(?i)\b(campaign|impression|click[- ]?through|ctr|attribution|funnel|audience)\b`)},
	{"operations", regexp.MustCompile(`(?i)\b(inventory|warehouse|logistics|shipment|fulfillment|supply chain|procurement)\b`)},
	{"hr", regexp.MustCompile(`(?i)\b(employee|headcount|payroll|attrition|recruiting|onboarding)\b`)},
}

var industryRules = []classificationRule{
	{"oil_gas", regexp.MustCompile(`(?i)\b(well(head)?|drilling|upstream|downstream|midstream|barrel|rig|crude|refiner(y|ies))\b`)},
	{"healthcare", regexp.MustCompile(`(?i)\b(patient|claim(s)?\b|diagnosis|clinical|provider|icd[- ]?10|payer)\b`)},
	{"retail", regexp.MustCompile(`(?i)\b(sku|pos|basket|storefront|merchandis(e|ing)|e-?commerce)\b`)},
	{"banking", regexp.MustCompile(`(?i)\b(loan|mortgage|deposit|branch|credit risk|aml|kyc)\b`)},
	{"manufacturing", regexp.MustCompile(`(?i)\b(plant|assembly|bom|work order|downtime|oee|production line)\b`)},
}

// Fixed confidences per extraction pass.
const (
	confidenceClassification = 0.7
	confidenceTableKnown     = 0.9
	confidenceTableUnknown   = 0.6
	confidenceColumnKnown    = 0.7
	confidenceColumnUnknown  = 0.4
	confidenceHierarchyKnown = 0.9
	confidenceHierarchyGuess = 0.6
	confidenceGlossary       = 0.85
)

var (
	// Table references after SQL-ish keywords, e.g. "FROM orders o JOIN x.y".
	tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|INTO|UPDATE)\s+([A-Za-z_][\w.]*)`)

	// Quoted identifiers can also name tables.
	quotedIdentPattern = regexp.MustCompile("[\"`]([A-Za-z_][\\w.]*)[\"`]")

	// Column references preceding comparison or membership operators.
	columnRefPattern = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\s*(?:=|!=|<>|<=|>=|<|>|\s+IN\b|\s+LIKE\b|\s+BETWEEN\b)`)

	// Identifiers near the literal words "hierarchy" or "project".
	hierarchyRefPattern = regexp.MustCompile(`(?i)\b(?:hierarchy|project)\s+([A-Za-z_][\w-]*)`)
)

// sqlKeywords is the stoplist applied to table and column candidates.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "join": true, "inner": true,
	"outer": true, "left": true, "right": true, "full": true, "cross": true,
	"on": true, "and": true, "or": true, "not": true, "in": true, "like": true,
	"between": true, "is": true, "null": true, "as": true, "by": true,
	"group": true, "order": true, "having": true, "limit": true, "offset": true,
	"union": true, "all": true, "distinct": true, "insert": true, "into": true,
	"values": true, "update": true, "set": true, "delete": true, "create": true,
	"table": true, "alter": true, "drop": true, "with": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "exists": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"asc": true, "desc": true, "using": true, "natural": true,
}
