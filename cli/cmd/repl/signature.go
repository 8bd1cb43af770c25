package repl

import (
	"context"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// callSignature is the parameter list of a tag or filter.
type callSignature struct {
	params []string
}

// tagSignatures describes the tags registered by the engine and the
// database tags.
var tagSignatures = map[string]callSignature{
	"range": {[]string{"start", "stop", "step"}},
	"expr":  {[]string{"source"}},
	"env":   {[]string{"name", "default"}},
	"dump":  {[]string{"...values"}},
	"now":   {nil},
	"query": {[]string{"sql", "...params"}},
	"exec":  {[]string{"sql", "...params"}},
}

// filterSignatures describes the arguments of the builtin filters. The
// piped value is not listed.
var filterSignatures = map[string]callSignature{
	"title":       {[]string{"locale"}},
	"trim":        {[]string{"cutset"}},
	"default":     {[]string{"fallback"}},
	"join":        {[]string{"sep"}},
	"split":       {[]string{"sep"}},
	"replace":     {[]string{"old", "new", "count"}},
	"round":       {[]string{"places"}},
	"json":        {[]string{"indent"}},
	"yaml":        {[]string{"indent"}},
	"number":      {[]string{"locale"}},
	"currency":    {[]string{"code", "locale"}},
	"percent":     {[]string{"locale"}},
	"date":        {[]string{"layout", "locale"}},
	"path_prefix": {[]string{"...items"}},
	"call":        {[]string{"name", "...args"}},
}

// signatureHintStyle styles for parameter hints.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// functionCall represents a detected function call in the input.
type functionCall struct {
	name     string // callee as written (e.g., "path.cat")
	argIndex int    // current argument index (0-based)
	inCall   bool   // true if cursor is inside parameter list
	filter   bool   // true if the callee follows a filter pipe
}

// detectFunctionCall analyzes the input to determine if the cursor is inside
// a function call's parameter list. It returns the function name, current
// argument index, and whether we're inside a call.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	// Scan backward from cursor to find the opening paren of a function call.
	// Track nested parens so we find the correct one.
	parenDepth := 0
	openParenPos := -1

scan:
	for i := cursor - 1; i >= 0; i-- {
		switch input[i] {
		case ')':
			parenDepth++
		case '(':
			if parenDepth == 0 {
				openParenPos = i

				break scan
			}

			parenDepth--
		}
	}

	if openParenPos == -1 {
		return functionCall{inCall: false}
	}

	// Walk backward from the '(' collecting identifier characters and dots.
	nameEnd := openParenPos
	nameStart := openParenPos

	for nameStart > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:nameStart])
		if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}

		nameStart -= size
	}

	funcName := input[nameStart:nameEnd]
	if funcName == "" {
		return functionCall{inCall: false}
	}

	// Count arguments by counting commas at depth 0 in the parameter list.
	argIndex := 0
	depth := 0

	for i := openParenPos + 1; i < cursor; i++ {
		switch input[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{
		name:     funcName,
		argIndex: argIndex,
		inCall:   true,
		filter:   afterPipe(input, nameStart),
	}
}

// signature returns the signature and parameter names of the callee of
// call. The signature is empty when the callee is unknown.
func (s *Session) signature(
	ctx context.Context,
	call functionCall,
) (signature string, params []string) {
	if call.filter {
		if _, ok := s.reg.Filter(call.name); !ok {
			return "", nil
		}

		params = filterSignatures[call.name].params

		return formatSignature(call.name, params), params
	}

	parent, method, dotted := cutLast(call.name, ".")
	if !dotted {
		if !s.isTag(call.name) {
			return "", nil
		}

		sig, ok := tagSignatures[call.name]
		if !ok {
			return call.name + "(...)", []string{"..."}
		}

		return formatSignature(call.name, sig.params), sig.params
	}

	base, ok := s.resolve(ctx, parent)
	if !ok {
		return "", nil
	}

	params, ok = methodParams(base, method)
	if !ok {
		return "", nil
	}

	return formatSignature(call.name, params), params
}

// cutLast slices s around the last instance of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}

	return s, "", false
}

// methodParams uses reflection to describe the parameters of the method of
// base that a template reaches with name.
func methodParams(base any, name string) ([]string, bool) {
	if base == nil || name == "" {
		return nil, false
	}

	rv := reflect.ValueOf(base)

	m := rv.MethodByName(name)
	if !m.IsValid() {
		r, size := utf8.DecodeRuneInString(name)
		m = rv.MethodByName(string(unicode.ToUpper(r)) + name[size:])
	}

	if !m.IsValid() {
		return nil, false
	}

	t := m.Type()
	params := make([]string, 0, t.NumIn())

	for i := range t.NumIn() {
		if t.IsVariadic() && i == t.NumIn()-1 {
			params = append(params, "..."+formatTypeName(t.In(i).Elem()))

			continue
		}

		params = append(params, formatTypeName(t.In(i)))
	}

	return params, true
}

// formatTypeName converts a reflect.Type to a readable parameter name.
// Examples: "string", "int", "bool", "func".
func formatTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Func:
		return "func"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "array"
	case reflect.Map:
		return "dict"
	case reflect.Ptr:
		return formatTypeName(t.Elem())
	default:
		if t.Name() != "" {
			return t.Name()
		}

		return "arg"
	}
}

// formatSignature formats a function signature with parameter names.
func formatSignature(name string, params []string) string {
	return name + "(" + strings.Join(params, ", ") + ")"
}

// renderSignatureHint renders the function signature with the current
// parameter highlighted.
func renderSignatureHint(
	signature string,
	params []string,
	currentArgIdx int,
) string {
	if signature == "" {
		return ""
	}

	openParen := strings.Index(signature, "(")
	if openParen == -1 {
		return signatureStyle.Render(signature)
	}

	funcName := signature[:openParen]

	closeParen := strings.LastIndex(signature, ")")
	if closeParen == -1 {
		return signatureStyle.Render(signature)
	}

	if len(params) == 0 {
		return signatureNameStyle.Render(funcName) +
			signatureStyle.Render("()")
	}

	var b strings.Builder
	b.WriteString(signatureNameStyle.Render(funcName))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureSeparatorStyle.Render(", "))
		}

		// A variadic parameter stays highlighted for every later argument.
		isVariadic := strings.HasPrefix(param, "...")

		if (isVariadic && currentArgIdx >= i) ||
			(!isVariadic && currentArgIdx == i) {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
