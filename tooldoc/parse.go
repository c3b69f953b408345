package tooldoc

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds every expression below; comments can come from
// untrusted tool descriptors.
const matchTimeout = time.Second

var (
	descriptionRe = mustCompile(`^(.*?)[\n\s]*(Args:|Returns:|Raises:|\z)`, regexp2.Singleline)
	argsRe        = mustCompile(`\n\s*Args:\n\s*(.*?)[\n\s]*(Returns:|Raises:|\z)`, regexp2.Singleline)
	returnsRe     = mustCompile(`\n\s*Returns:\n\s*(.*?)[\n\s]*(Raises:|\z)`, regexp2.Singleline)

	// argSplitRe matches "name: description" up to the next "name:" line or
	// the end of the Args block.
	argSplitRe = mustCompile(`(?:^|\n)\s*(\w+):\s*(.*?)\s*(?=\n\s*\w+:|\z)`, regexp2.Singleline)

	foldRe = mustCompile(`\s*\n+\s*`, regexp2.None)
)

func mustCompile(expr string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, opts)
	re.MatchTimeout = matchTimeout
	return re
}

// Doc is a parsed structured doc comment.
type Doc struct {
	// Description is the leading free text.
	Description string

	// Args maps argument names to their (single-line) descriptions.
	Args map[string]string

	// ArgOrder lists argument names in the order they were documented.
	ArgOrder []string

	// Returns is the body of the Returns: section.
	Returns string

	// HasReturns reports whether a Returns: section was present.
	HasReturns bool
}

// Arg returns the description documented for name.
func (d Doc) Arg(name string) (string, bool) {
	desc, ok := d.Args[name]
	return desc, ok
}

// Parse splits a Google-style doc comment into description, per-argument
// descriptions and return description.
func Parse(comment string) (Doc, error) {
	text := strings.TrimSpace(comment)

	desc, _, err := firstGroup(descriptionRe, text)
	if err != nil {
		return Doc{}, err
	}
	doc := Doc{
		Description: strings.TrimSpace(desc),
		Args:        map[string]string{},
	}
	if doc.Description == "" {
		return Doc{}, ErrNoDescription
	}

	block, found, err := firstGroup(argsRe, text)
	if err != nil {
		return Doc{}, err
	}
	if found {
		if err := doc.splitArgs(strings.TrimSpace(block)); err != nil {
			return Doc{}, err
		}
	}

	returns, found, err := firstGroup(returnsRe, text)
	if err != nil {
		return Doc{}, err
	}
	if found {
		doc.Returns = strings.TrimSpace(returns)
		doc.HasReturns = true
	}

	return doc, nil
}

func (d *Doc) splitArgs(block string) error {
	lines := strings.Split(block, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	block = strings.Join(kept, "\n")

	m, err := argSplitRe.FindStringMatch(block)
	for {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMatchTimeout, err)
		}
		if m == nil {
			return nil
		}

		name := m.GroupByNumber(1).String()
		desc, ferr := foldRe.Replace(strings.TrimSpace(m.GroupByNumber(2).String()), " ", -1, -1)
		if ferr != nil {
			return fmt.Errorf("%w: %v", ErrMatchTimeout, ferr)
		}
		if _, seen := d.Args[name]; !seen {
			d.ArgOrder = append(d.ArgOrder, name)
		}
		d.Args[name] = desc

		m, err = argSplitRe.FindNextMatch(m)
	}
}

func firstGroup(re *regexp2.Regexp, s string) (string, bool, error) {
	m, err := re.FindStringMatch(s)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrMatchTimeout, err)
	}
	if m == nil {
		return "", false, nil
	}
	return m.GroupByNumber(1).String(), true, nil
}
