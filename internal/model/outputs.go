package model

// ItemStatus is the per-competitor outcome within a stage.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

// StageOutputs holds each stage's structured result.
type StageOutputs struct {
	Discovery  *DiscoveryOutput   `json:"discovery,omitempty"`
	Research   []ResearchResult   `json:"research,omitempty"`
	Extraction []ExtractionResult `json:"extraction,omitempty"`
	Crawl      []CrawlResult      `json:"crawl,omitempty"`
	Analysis   *AnalysisOutput    `json:"analysis,omitempty"`
}

// CompanyProfile describes the subject company's market position.
type CompanyProfile struct {
	PrimaryBusiness  string   `json:"primary_business"`
	TargetCustomer   string   `json:"target_customer"`
	ValueProposition string   `json:"value_proposition"`
	MarketSegment    string   `json:"market_segment"`
	SearchTerms      []string `json:"search_terms"`
}

// DiscoveryOutput is the result of competitor discovery.
type DiscoveryOutput struct {
	Profile      CompanyProfile `json:"profile"`
	Queries      []string       `json:"queries"`
	Candidates   []string       `json:"candidates"`
	Competitors  []string       `json:"competitors"`
	UsedFallback bool           `json:"used_fallback"`
}

// Source is one search hit.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// ResearchResult is one competitor's research outcome.
type ResearchResult struct {
	Competitor string     `json:"competitor"`
	Status     ItemStatus `json:"status"`
	Answer     string     `json:"answer,omitempty"`
	Sources    []Source   `json:"sources,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Page is the text content of one fetched URL.
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// ExtractionResult is one competitor's extraction outcome.
type ExtractionResult struct {
	Competitor string     `json:"competitor"`
	Status     ItemStatus `json:"status"`
	URLs       []string   `json:"urls,omitempty"`
	Pages      []Page     `json:"pages,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// CrawlTarget classifies the page a crawl started from.
type CrawlTarget string

const (
	CrawlTargetPricing       CrawlTarget = "pricing"
	CrawlTargetFeatures      CrawlTarget = "features"
	CrawlTargetDocumentation CrawlTarget = "documentation"
	CrawlTargetHomepage      CrawlTarget = "homepage"
	CrawlTargetGeneral       CrawlTarget = "general"
)

// CrawlResult is one competitor's crawl outcome.
type CrawlResult struct {
	Competitor string      `json:"competitor"`
	Status     ItemStatus  `json:"status"`
	URL        string      `json:"url,omitempty"`
	TargetType CrawlTarget `json:"target_type,omitempty"`
	Content    string      `json:"content,omitempty"`
	PageCount  int         `json:"page_count,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// AnalysisOutput is the synthesized report. Text grows while the job is
// processing and is final only once the job is completed.
type AnalysisOutput struct {
	Text       string       `json:"text"`
	ChartData  *ChartData   `json:"chart_data,omitempty"`
	ChartError string       `json:"chart_error,omitempty"`
	Mode       AnalysisMode `json:"mode,omitempty"`
	Degraded   []string     `json:"degraded,omitempty"`
}

// ChartRecord is one row of chart data: a label plus company-keyed values.
type ChartRecord map[string]any

// ChartData is the structured comparison derived from the report.
type ChartData struct {
	Pricing  []ChartRecord `json:"pricing"`
	Features []ChartRecord `json:"features"`
	Risks    []ChartRecord `json:"risks"`
}

// Usable reports whether at least one item succeeded.
func Usable[T interface{ ok() bool }](items []T) bool {
	for _, it := range items {
		if it.ok() {
			return true
		}
	}
	return false
}

func (r ResearchResult) ok() bool   { return r.Status == ItemSuccess }
func (r ExtractionResult) ok() bool { return r.Status == ItemSuccess }
func (r CrawlResult) ok() bool      { return r.Status == ItemSuccess }
