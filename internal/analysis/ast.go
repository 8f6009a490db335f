package analysis

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// namedChildren returns the named children of n, leaving out comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// unwrap strips parentheses around an expression.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" {
		inner := namedChildren(n)
		if len(inner) == 0 {
			return n
		}
		n = inner[0]
	}
	return n
}

func isFunction(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "function", "function_expression", "arrow_function", "generator_function",
		"function_declaration", "generator_function_declaration", "method_definition":
		return true
	}
	return false
}

// memberPath renders a chain of identifiers and property accesses as a dotted
// path ("Ext.Loader.setPath"). Any other expression yields "".
func memberPath(n *sitter.Node, content []byte) string {
	n = unwrap(n)
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return n.Content(content)
	case "member_expression":
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return ""
		}
		base := memberPath(obj, content)
		if base == "" {
			return ""
		}
		return base + "." + prop.Content(content)
	}
	return ""
}

// callArguments returns the argument expressions of a call_expression.
func callArguments(call *sitter.Node) []*sitter.Node {
	return namedChildren(call.ChildByFieldName("arguments"))
}

// stringValue returns the value of a string literal, or of a template literal
// without substitutions.
func stringValue(n *sitter.Node, content []byte) (string, bool) {
	n = unwrap(n)
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
	case "template_string":
		for _, c := range namedChildren(n) {
			if c.Type() == "template_substitution" {
				return "", false
			}
		}
	default:
		return "", false
	}
	raw := n.Content(content)
	if len(raw) < 2 {
		return "", false
	}
	return unescape(raw[1 : len(raw)-1]), true
}

// stringList accepts a string literal or an array and returns its string
// elements. Non-string array elements are skipped.
func stringList(n *sitter.Node, content []byte) ([]string, bool) {
	n = unwrap(n)
	if n == nil {
		return nil, false
	}
	if s, ok := stringValue(n, content); ok {
		return []string{s}, true
	}
	if n.Type() != "array" {
		return nil, false
	}
	var out []string
	for _, el := range namedChildren(n) {
		if s, ok := stringValue(el, content); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// property is one key/value pair of an object literal.
type property struct {
	key   string
	node  *sitter.Node
	value *sitter.Node
}

// properties lists the key/value pairs of an object literal in source order.
func properties(obj *sitter.Node, content []byte) []property {
	obj = unwrap(obj)
	if obj == nil || obj.Type() != "object" {
		return nil
	}
	var out []property
	for _, c := range namedChildren(obj) {
		if c.Type() != "pair" {
			continue
		}
		keyNode := c.ChildByFieldName("key")
		value := c.ChildByFieldName("value")
		if keyNode == nil || value == nil {
			continue
		}
		var key string
		switch keyNode.Type() {
		case "property_identifier", "identifier", "number":
			key = keyNode.Content(content)
		default:
			s, ok := stringValue(keyNode, content)
			if !ok {
				continue
			}
			key = s
		}
		out = append(out, property{key: key, node: c, value: value})
	}
	return out
}

// findProperty returns the value of the first property named key.
func findProperty(obj *sitter.Node, key string, content []byte) *sitter.Node {
	for _, p := range properties(obj, content) {
		if p.key == key {
			return p.value
		}
	}
	return nil
}

// firstObject returns the first object literal among args.
func firstObject(args []*sitter.Node) *sitter.Node {
	for _, a := range args {
		if u := unwrap(a); u != nil && u.Type() == "object" {
			return u
		}
	}
	return nil
}

// classBody returns the object literal holding a class definition: the
// literal itself, or the object returned by a function that is either passed
// as is or invoked in place.
func classBody(n *sitter.Node) *sitter.Node {
	n = unwrap(n)
	if n == nil {
		return nil
	}
	switch {
	case n.Type() == "object":
		return n
	case n.Type() == "call_expression":
		fn := unwrap(n.ChildByFieldName("function"))
		if isFunction(fn) {
			return returnedObject(fn)
		}
	case isFunction(n):
		return returnedObject(n)
	}
	return nil
}

// returnedObject returns the object literal yielded by the single return
// statement of fn, or nil.
func returnedObject(fn *sitter.Node) *sitter.Node {
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	if body.Type() != "statement_block" {
		if obj := unwrap(body); obj != nil && obj.Type() == "object" {
			return obj
		}
		return nil
	}
	var returns []*sitter.Node
	collectReturns(body, &returns)
	if len(returns) != 1 {
		return nil
	}
	values := namedChildren(returns[0])
	if len(values) == 0 {
		return nil
	}
	if obj := unwrap(values[0]); obj != nil && obj.Type() == "object" {
		return obj
	}
	return nil
}

func collectReturns(n *sitter.Node, out *[]*sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || isFunction(c) || c.Type() == "class" || c.Type() == "class_declaration" {
			continue
		}
		if c.Type() == "return_statement" {
			*out = append(*out, c)
			continue
		}
		collectReturns(c, out)
	}
}

// isBootstrapName reports whether n is the name expression the bootstrap
// convention passes to define: `<property access> + '.$application'`.
func isBootstrapName(n *sitter.Node, content []byte) bool {
	n = unwrap(n)
	if n == nil || n.Type() != "binary_expression" {
		return false
	}
	op := n.ChildByFieldName("operator")
	if op == nil || op.Content(content) != "+" {
		return false
	}
	left := unwrap(n.ChildByFieldName("left"))
	if left == nil || left.Type() != "member_expression" {
		return false
	}
	right, ok := stringValue(n.ChildByFieldName("right"), content)
	return ok && right == bootstrapMarker
}

// unescape decodes JavaScript string escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'x':
			if r, ok := parseHex(s, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteByte('x')
			}
		case 'u':
			if i+1 < len(s) && s[i+1] == '{' {
				end := strings.IndexByte(s[i+1:], '}')
				if end > 1 {
					if r, ok := parseHex(s, i+2, end-1); ok {
						b.WriteRune(r)
						i += end + 1
						continue
					}
				}
				b.WriteByte('u')
			} else if r, ok := parseHex(s, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteByte('u')
			}
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String()
}

func parseHex(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
