package parser

// SystemInfo is the host description parsed from a run's system_info
// string, e.g. "arch:x86_64 cpu:Intel(R) Core(TM) i7-10700K system:Linux release:5.15.0 python:3.10.6".
type SystemInfo struct {
	Arch    *string `json:"arch"`
	CPU     *string `json:"cpu"`
	System  *string `json:"system"`
	Release *string `json:"release"`
	Python  *string `json:"python"`
}

var systemInfoTokenizer = &tokenizer{
	fields: map[string]field{
		"arch":    {continuation: continueUntilKeyed},
		"cpu":     {continuation: continueUntilKeyed},
		"system":  {continuation: continueUntilKeyed},
		"release": {continuation: continueUntilKeyed},
		"python":  {continuation: continueUntilKeyed},
	},
}

// ParseSystemInfo parses a system_info string. Every value runs until the
// next token containing a colon, so multi-word CPU names survive intact.
func ParseSystemInfo(systemInfo string) SystemInfo {
	values := systemInfoTokenizer.scan(systemInfo)

	return SystemInfo{
		Arch:    lookup(values, "arch"),
		CPU:     lookup(values, "cpu"),
		System:  lookup(values, "system"),
		Release: lookup(values, "release"),
		Python:  lookup(values, "python"),
	}
}

// IsValid reports whether at least one field was parsed.
func (s SystemInfo) IsValid() bool {
	return s.Arch != nil || s.CPU != nil || s.System != nil ||
		s.Release != nil || s.Python != nil
}

// IsComplete reports whether all five fields were parsed. Only complete
// records are persisted.
func (s SystemInfo) IsComplete() bool {
	return s.Arch != nil && s.CPU != nil && s.System != nil &&
		s.Release != nil && s.Python != nil
}

// Summary renders the parsed fields back into canonical key:value form.
func (s SystemInfo) Summary() string {
	return summarize(
		pair{"arch", s.Arch},
		pair{"cpu", s.CPU},
		pair{"system", s.System},
		pair{"release", s.Release},
		pair{"python", s.Python},
	)
}
