package portal

import "time"

// Options describe how a combination of parameters is turned into a request.
// Path, Query and Form values may contain `{name}` placeholders that are
// replaced by the value of the param with that name.
type Options struct {
	BaseUrl   string            `json:"base_url"`
	Path      string            `json:"path"`
	Method    string            `json:"method"`
	Query     map[string]string `json:"query"`
	Form      map[string]string `json:"form"`
	Headers   map[string]string `json:"headers"`
	UserAgent string            `json:"user_agent"`

	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	RetryCount        int     `json:"retry_count"`
	RetryWaitMs       int     `json:"retry_wait_ms"`
	RetryMaxWaitMs    int     `json:"retry_max_wait_ms"`

	// Cloudflare wraps the transport with a browser-like TLS and header
	// fingerprint.
	Cloudflare bool `json:"cloudflare"`
	// DumpDir, when set, receives a text file per HTTP exchange while debug
	// logging is enabled.
	DumpDir string `json:"dump_dir"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// DefaultOptions is the complaint details endpoint of the BBMP Sahaaya
// portal, queried by complaint id.
func DefaultOptions() Options {
	return Options{
		BaseUrl: "https://www.smartoneblr.com",
		Path:    "/WssBBMPComplaintRequestDetails.htm",
		Method:  "POST",
		Query: map[string]string{
			"_show":         "Show",
			"complainantNo": "{complaint_id}",
		},
		Form: map[string]string{
			"compno":          "^",
			"assMntNo":        "^",
			"alfaNo":          "^",
			"SbassMntNo":      "^",
			"pageNameV":       "waterTaxSearch.htm^",
			"mobnoFlg":        "^",
			"mobNumber":       "^",
			"sessionLangCode": "^",
			"RefNo":           "CSCRefNo^",
			"deptId":          "BBMP^",
			"searchBy":        "refNoDiv^",
			"mobNum":          "",
			"complainantNo":   "{complaint_id}^",
			"applicationNo":   "{complaint_id}^",
		},
		UserAgent:         defaultUserAgent,
		TimeoutSeconds:    10,
		RequestsPerSecond: 10,
		RetryCount:        3,
		RetryWaitMs:       500,
		RetryMaxWaitMs:    5000,
	}
}

func (o Options) timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (o Options) retryWait() time.Duration {
	return time.Duration(o.RetryWaitMs) * time.Millisecond
}

func (o Options) retryMaxWait() time.Duration {
	return time.Duration(o.RetryMaxWaitMs) * time.Millisecond
}
