package entities

// QueryPlan tracks one natural-language question through the generate →
// validate → execute pipeline. It lives for a single request and is discarded
// once the answer is composed. The SQL never reaches storage unless Accepted
// is true.
type QueryPlan struct {
	Question     string
	GeneratedSQL string
	Accepted     bool
	RejectReason string
	Columns      []string
	Rows         []map[string]interface{}
}

// AskResult is the outcome of one ask request. GeneratedSQL is present only
// when the query passed validation; DataUsed is the bounded row sample the
// answer was grounded on.
type AskResult struct {
	Answer       string                   `json:"answer"`
	GeneratedSQL string                   `json:"sql_query,omitempty"`
	DataUsed     []map[string]interface{} `json:"data_used,omitempty"`
}
