package tooldoc

import (
	"fmt"
	"strings"
	"testing"
)

func makeBenchComment(args int) string {
	var b strings.Builder
	b.WriteString("Summary for a tool with usage information.\n\nArgs:\n")
	for i := 0; i < args; i++ {
		fmt.Fprintf(&b, "    arg_%d: Description for argument %d that\n        continues on a second line (choices: [\"a\", \"b\"])\n", i, i)
	}
	b.WriteString("\nReturns:\n    Something useful.\n")
	return b.String()
}

func BenchmarkParse_Small(b *testing.B) {
	comment := makeBenchComment(3)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Parse(comment)
	}
}

func BenchmarkParse_Large(b *testing.B) {
	comment := makeBenchComment(50)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Parse(comment)
	}
}

func BenchmarkSplitChoices(b *testing.B) {
	desc := `Description for argument (choices: ["a", "b", "c"])`
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _, _, _ = SplitChoices(desc)
	}
}
