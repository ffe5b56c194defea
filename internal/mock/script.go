package mock

import (
	"strings"
	"unicode"
)

type toolStep struct {
	name      string
	arguments map[string]any
	result    map[string]any
}

// script is one canned reply.
type script struct {
	thinking string
	tools    []toolStep
	content  string
	failure  string
}

func scriptFor(prompt string) script {
	lower := strings.ToLower(prompt)

	sc := script{
		thinking: "The user wrote: \"" + truncate(prompt, 60) + "\". I should answer briefly and check whether a tool would help.",
	}

	switch {
	case strings.Contains(lower, "search") || strings.Contains(lower, "news"):
		sc.tools = append(sc.tools, toolStep{
			name:      "web_search",
			arguments: map[string]any{"query": truncate(prompt, 80)},
			result: map[string]any{
				"success": true,
				"results": []map[string]any{
					{"title": "Peanut - Wikipedia", "url": "https://en.wikipedia.org/wiki/Peanut"},
				},
			},
		})
		sc.content = "I searched the web. The top result is the Wikipedia article on **peanuts**, which are legumes rather than true nuts."
	case strings.Contains(lower, "calc") || strings.Contains(lower, "math"):
		sc.tools = append(sc.tools, toolStep{
			name:      "calculator",
			arguments: map[string]any{"expression": "6 * 7"},
			result:    map[string]any{"success": true, "value": 42},
		})
		sc.content = "The calculator says `6 * 7 = 42`."
	case strings.Contains(lower, "weather"):
		sc.tools = append(sc.tools, toolStep{
			name:      "get_weather",
			arguments: map[string]any{"location": "here"},
			result:    map[string]any{"success": false, "error": "weather service unavailable"},
		})
		sc.content = "I could not reach the weather service, sorry. Try again in a minute."
	case hasWord(lower, "hello") || hasWord(lower, "hi"):
		sc.content = "Hello! I'm a mock assistant running on your machine. Ask me to *search*, do some *math*, check the *weather*, or trigger an *error*."
	default:
		sc.content = "Here is a mock reply to your message.\n\n" +
			"- It streams token by token\n" +
			"- It can include `code`\n\n" +
			"```go\nfmt.Println(\"hello, peanut\")\n```\n"
	}

	if strings.Contains(lower, "error") {
		sc.failure = "model ran out of memory"
	}
	return sc
}

func hasWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if f == word {
			return true
		}
	}
	return false
}

// tokenize splits text into word-sized tokens, each keeping its trailing
// whitespace, so that the tokens concatenate back to text.
func tokenize(text string) []string {
	var tokens []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inSpace && !space {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
