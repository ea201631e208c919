package script

import (
	"strconv"
	"strings"
)

// Format renders doc back into canonical script source. Parsing the result
// yields a tree equal to doc.
func Format(doc *Document) string {
	var sb strings.Builder
	for _, child := range doc.Children {
		formatNode(&sb, child)
	}
	return sb.String()
}

func formatNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Document:
		for _, child := range n.Children {
			formatNode(sb, child)
		}
	case *Text:
		sb.WriteString(escapeText(n.Value))
	case *ForLoop:
		sb.WriteString("{$ FOR ")
		sb.WriteString(n.Var)
		for _, el := range []Element{n.Start, n.End, n.Step} {
			if el == nil {
				continue
			}
			sb.WriteByte(' ')
			sb.WriteString(FormatElement(el))
		}
		sb.WriteString(" $}")
		for _, child := range n.Children {
			formatNode(sb, child)
		}
		sb.WriteString("{$ END $}")
	case *Echo:
		sb.WriteString("{$=")
		for _, el := range n.Elements {
			sb.WriteByte(' ')
			sb.WriteString(FormatElement(el))
		}
		sb.WriteString(" $}")
	}
}

// FormatElement renders a single element as it would appear inside a tag.
func FormatElement(el Element) string {
	switch el := el.(type) {
	case Variable:
		return el.Name
	case ConstInt:
		return strconv.FormatInt(el.Value, 10)
	case ConstFloat:
		s := strconv.FormatFloat(el.Value, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case StringLit:
		return quote(el.Value)
	case Operator:
		return el.Symbol
	case FuncCall:
		return "@" + el.Name
	}
	return ""
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `{`, `\{`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	return `"` + stringEscaper.Replace(s) + `"`
}
