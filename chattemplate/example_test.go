package chattemplate_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/chattemplate/chattemplate"
)

func ExampleCompiledTemplate_Render() {
	tpl, err := chattemplate.Compile(
		"{% for m in messages %}{{ m.role }}: " +
			"{% if m.role == \"assistant\" %}{% generation %}{{ m.content }}{% endgeneration %}" +
			"{% else %}{{ m.content }}{% endif %} | {% endfor %}")
	if err != nil {
		fmt.Println(err)
		return
	}

	out, err := tpl.Render(context.Background(), chattemplate.Vars{
		Messages: []chattemplate.Message{
			chattemplate.NewMessage("user", "2+2?"),
			chattemplate.NewMessage("assistant", "4"),
		},
	}, true)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%q\n", out.Text)
	fmt.Println(out.Spans)
	// Output:
	// "user: 2+2? | assistant: 4 | "
	// [{24 25}]
}

func ExampleTrimToFinalMessage() {
	trimmed, err := chattemplate.TrimToFinalMessage(
		"<user>Write a haiku</user>\n<assistant>Autumn moonlight</assistant>\n",
		chattemplate.NewMessage("assistant", "Autumn moonlight"),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%q\n", trimmed)
	// Output:
	// "<user>Write a haiku</user>\n<assistant>Autumn moonlight"
}
