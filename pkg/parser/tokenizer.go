package parser

import "strings"

// continuation controls which tokens after a keyed token extend its value.
type continuation int

const (
	// continueNone never extends the value.
	continueNone continuation = iota
	// continueUntilKeyed appends bare tokens until the next token that
	// contains a colon, recognized or not.
	continueUntilKeyed
	// continueUntilKnownKey appends every token, keyed or bare, until the
	// next recognized key.
	continueUntilKnownKey
)

// field describes how one recognized key is scanned.
type field struct {
	continuation continuation
	// opensCatchAll routes every later unrecognized token to the catch-all.
	opensCatchAll bool
	// trim strips surrounding whitespace from the value after each append.
	trim bool
}

// tokenizer is the shared key:value scanner. Input is split on every
// single space and each token is split on its first colon. The zero catchAll
// drops unrecognized keyed tokens.
type tokenizer struct {
	fields   map[string]field
	catchAll string
}

// scan walks the input once, left to right, and returns the value of every
// key that was seen. A key that was seen with an empty value maps to "".
// Later occurrences of the same key replace earlier ones.
func (t *tokenizer) scan(input string) map[string]string {
	values := make(map[string]string, len(t.fields)+1)

	var (
		open       string
		openRule   continuation
		catchAllOn bool
		overflow   []string
	)

	extend := func(tok string) {
		v := values[open] + " " + tok
		if t.fields[open].trim {
			v = strings.TrimSpace(v)
		}

		values[open] = v
	}

	// Empty tokens from repeated spaces are bare tokens, so spacing inside
	// continued values is kept as submitted.
	for _, tok := range strings.Split(input, " ") {
		key, value, keyed := strings.Cut(tok, ":")
		if !keyed {
			switch {
			case catchAllOn:
				overflow = append(overflow, tok)
			case open != "":
				extend(tok)
			}

			continue
		}

		f, known := t.fields[key]
		if !known {
			switch {
			case t.catchAll != "":
				catchAllOn = true
				open = ""
				overflow = append(overflow, tok)
			case openRule == continueUntilKnownKey && open != "":
				extend(tok)
			default:
				open, openRule = "", continueNone
			}

			continue
		}

		values[key] = value
		open, openRule = "", continueNone

		if f.continuation != continueNone {
			open, openRule = key, f.continuation
		}

		if f.trim {
			values[key] = strings.TrimSpace(value)
		}

		if f.opensCatchAll {
			catchAllOn = true
		}
	}

	if len(overflow) > 0 {
		values[t.catchAll] = strings.Join(overflow, " ")
	}

	return values
}

// lookup returns a pointer to the value of key, or nil when it was not seen.
func lookup(values map[string]string, key string) *string {
	v, ok := values[key]
	if !ok {
		return nil
	}

	return &v
}

// pair is one field of a summary. An empty key writes the bare value.
type pair struct {
	key   string
	value *string
}

// summarize joins the present fields as key:value tokens in the given order.
func summarize(pairs ...pair) string {
	parts := make([]string, 0, len(pairs))

	for _, p := range pairs {
		switch {
		case p.value == nil:
			continue
		case p.key == "":
			parts = append(parts, *p.value)
		default:
			parts = append(parts, p.key+":"+*p.value)
		}
	}

	return strings.Join(parts, " ")
}
