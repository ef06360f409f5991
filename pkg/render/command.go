package render

import (
	"errors"
	"strings"
	"unicode"
)

var (
	errUnclosedQuote  = errors.New("unclosed quote in renderer command")
	errTrailingEscape = errors.New("trailing escape in renderer command")
)

// splitCommand splits a configured renderer command such as
// `magick "/opt/im 7/convert"` into argv using POSIX-shell word rules:
// single quotes are literal, double quotes allow \" \\ \$ \` escapes, and a
// backslash outside quotes escapes any character.
func splitCommand(input string) ([]string, error) {
	var (
		args   []string
		word   strings.Builder
		quote  rune
		inWord bool
	)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case quote == '\'':
			if ch == '\'' {
				quote = 0
			} else {
				word.WriteRune(ch)
			}

		case ch == '\\':
			if i+1 >= len(runes) {
				return nil, errTrailingEscape
			}
			i++
			next := runes[i]
			if quote == '"' && !strings.ContainsRune("\"\\$`", next) {
				word.WriteRune('\\')
			}
			word.WriteRune(next)
			inWord = true

		case quote == '"':
			if ch == '"' {
				quote = 0
			} else {
				word.WriteRune(ch)
			}

		case ch == '\'' || ch == '"':
			quote = ch
			inWord = true

		case unicode.IsSpace(ch):
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}

		default:
			word.WriteRune(ch)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errUnclosedQuote
	}
	if inWord {
		args = append(args, word.String())
	}
	return args, nil
}

// quoteCommand renders argv back into a single shell-safe line for logs.
func quoteCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		parts[i] = quoteArg(arg)
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("'\"\\$`", r)
	}) {
		return arg
	}
	if !strings.Contains(arg, "'") {
		return "'" + arg + "'"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		if strings.ContainsRune("\"\\$`", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
