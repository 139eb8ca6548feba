package parser

// Library keys recognized in a run's model_info string.
const (
	LibraryTorch        = "torch"
	LibraryXformers     = "xformers"
	LibraryDiffusers    = "diffusers"
	LibraryTransformers = "transformers"
)

// Libraries holds the library versions parsed from a run's model_info
// string, e.g. "torch:2.0.1+cu118 autocast half xformers:0.0.20 diffusers:0.18.2 transformers:4.30.2".
type Libraries struct {
	Torch        *string `json:"torch"`
	Xformers     *string `json:"xformers"`
	Diffusers    *string `json:"diffusers"`
	Transformers *string `json:"transformers"`
}

var librariesTokenizer = &tokenizer{
	fields: map[string]field{
		LibraryTorch:        {continuation: continueUntilKnownKey, trim: true},
		LibraryXformers:     {},
		LibraryDiffusers:    {},
		LibraryTransformers: {},
	},
}

// ParseLibraries parses a model_info string. The torch value absorbs every
// following token, build flags included, until another library key.
func ParseLibraries(modelInfo string) Libraries {
	values := librariesTokenizer.scan(modelInfo)

	return Libraries{
		Torch:        lookup(values, LibraryTorch),
		Xformers:     lookup(values, LibraryXformers),
		Diffusers:    lookup(values, LibraryDiffusers),
		Transformers: lookup(values, LibraryTransformers),
	}
}

// Version returns the parsed value for a library key, or nil.
func (l Libraries) Version(name string) *string {
	switch name {
	case LibraryTorch:
		return l.Torch
	case LibraryXformers:
		return l.Xformers
	case LibraryDiffusers:
		return l.Diffusers
	case LibraryTransformers:
		return l.Transformers
	default:
		return nil
	}
}

// HasAllRequired reports whether every named library has a value.
// Unknown names never resolve.
func (l Libraries) HasAllRequired(required ...string) bool {
	for _, name := range required {
		if l.Version(name) == nil {
			return false
		}
	}

	return true
}

// IsValid reports whether at least one library was parsed.
func (l Libraries) IsValid() bool {
	return l.Torch != nil || l.Xformers != nil || l.Diffusers != nil ||
		l.Transformers != nil
}

// Summary renders the parsed fields back into canonical key:value form.
func (l Libraries) Summary() string {
	return summarize(
		pair{LibraryTorch, l.Torch},
		pair{LibraryXformers, l.Xformers},
		pair{LibraryDiffusers, l.Diffusers},
		pair{LibraryTransformers, l.Transformers},
	)
}
