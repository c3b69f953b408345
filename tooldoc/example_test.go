package tooldoc_test

import (
	"fmt"

	"github.com/jonwraymond/chattemplate/tooldoc"
)

func ExampleParse() {
	doc, err := tooldoc.Parse(`Multiply two numbers.

Args:
    a: The first factor
    b: The second factor

Returns:
    The product of a and b.`)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println("Description:", doc.Description)
	for _, name := range doc.ArgOrder {
		fmt.Printf("  %s: %s\n", name, doc.Args[name])
	}
	fmt.Println("Returns:", doc.Returns)
	// Output:
	// Description: Multiply two numbers.
	//   a: The first factor
	//   b: The second factor
	// Returns: The product of a and b.
}

func ExampleSplitChoices() {
	choices, rest, ok, _ := tooldoc.SplitChoices(`The unit (choices: ["celsius", "fahrenheit"])`)
	fmt.Println(ok, rest, choices)
	// Output:
	// true The unit [celsius fahrenheit]
}
