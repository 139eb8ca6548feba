package parser

// AppDetails is the application identity parsed from a run's info string,
// e.g. "app:stable-diffusion-webui updated:2023-08-31 hash:5ef669de url:https://...".
type AppDetails struct {
	AppName *string `json:"app_name"`
	Updated *string `json:"updated"`
	Hash    *string `json:"hash"`
	URL     *string `json:"url"`
}

var appDetailsTokenizer = &tokenizer{
	fields: map[string]field{
		"app":     {},
		"updated": {},
		"hash":    {},
		"url":     {},
	},
}

// ParseAppDetails parses an info string. Values never span tokens and
// unknown keys are dropped.
func ParseAppDetails(info string) AppDetails {
	values := appDetailsTokenizer.scan(info)

	return AppDetails{
		AppName: lookup(values, "app"),
		Updated: lookup(values, "updated"),
		Hash:    lookup(values, "hash"),
		URL:     lookup(values, "url"),
	}
}

// IsValid reports whether at least one field was parsed.
func (a AppDetails) IsValid() bool {
	return a.AppName != nil || a.Updated != nil || a.Hash != nil || a.URL != nil
}

// Summary renders the parsed fields back into canonical key:value form.
func (a AppDetails) Summary() string {
	return summarize(
		pair{"app", a.AppName},
		pair{"updated", a.Updated},
		pair{"hash", a.Hash},
		pair{"url", a.URL},
	)
}
