// Package lang implements stencil, a template language embedded in literal
// text.
//
// A template is plain text interspersed with tags. Text outside of tags is
// copied to the output verbatim; text inside a tag is a sequence of
// statements in the language.
//
//	Hello, {% print name; %}!
//	{% for (i, item) in items: %}
//	  {% print loop.index1 ~ ". " ~ item|upper; %}
//	{% endfor; %}
//
// # Pipeline
//
// An [Engine] wires three stages together:
//
//   - The [Lexer] splits source into [Token] values, switching between text
//     mode and language mode at the tag delimiters ({% and %} by default).
//   - The [Parser] builds a tree of [Node] values. Expressions are parsed by
//     precedence climbing over the operators of a [Registry]; statements are
//     parsed by the grammar registered for their keyword.
//   - Each Node evaluates itself against a [State] holding the [Scope] and
//     the output writer.
//
// # Statements
//
//	if cond: body (elseif cond: body)* (else: body)? endif;
//	for (value) in seq: body endfor;
//	for (key, value) in seq: body endfor;
//	print expr;
//	name = expr;
//	expr;
//
// A statement ends at a semicolon or at the closing tag. The body of an if
// or for may span any number of tags and the text between them.
//
// # Expressions
//
// Operators, from lowest to highest precedence:
//
//	=                      assignment (right associative)
//	or ||
//	and &&
//	== !=
//	< <= > >= in "not in"
//	+ - ~                  ~ always concatenates strings
//	* / %
//	- + not ! typeof       prefix
//
// Postfix forms bind tighter than any operator: obj.name, obj.name(args),
// seq[index] and value|filter(args). A name followed by parentheses calls a
// registered tag: range(3).
//
// Literals are integers, floats, quoted strings, true, false, null, arrays
// [a, b] and dictionaries {k: v}. An array literal with a keyed entry
// [k: v, w] is a dictionary whose positional entries take the next integer
// key. A variable may be written $name to use a reserved word as its name.
//
// # Values
//
// Templates see int64, float64, bool, string, nil, []any and [Dict]. Go
// integer and float kinds are normalized on access. Host values are reached
// through the [Object] interface or by reflection over exported fields and
// methods; a struct field tagged `stencil:"name"` is visible as name.
//
// # Errors
//
// Failures are [Error] values derived from [ErrSyntax] or from
// [ErrRuntime] ([ErrReference], [ErrType], [ErrKey], [ErrAttribute]) and
// carry the source line. Output written before a runtime error is not
// retracted.
//
// # Extension
//
// A [Registry] holds the operators, statements, filters and tags. Hosts
// register their own with [Registry.RegisterOperator],
// [Registry.RegisterStatement], [Registry.RegisterFilter] and
// [Registry.RegisterTag] and pass the registry to [New] with
// [WithRegistry]. The engine keeps its own copy.
package lang
