// Package analysis extracts class definitions and dependency edges from
// framework source files by walking their syntax tree.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/mehmetkoksal-w/extdeps/internal/fsutil"
	"github.com/mehmetkoksal-w/extdeps/internal/logger"
	"github.com/mehmetkoksal-w/extdeps/internal/model"
)

// DefaultNamespace is the framework's global namespace object.
const DefaultNamespace = "Ext"

const (
	bootstrapMarker  = ".$application"
	defaultAppFolder = "app"
)

// ErrSkip signals that a file neither defines a class nor declares a
// dependency. Callers substitute model.Placeholder when they need a descriptor.
var ErrSkip = errors.New("no class definition or dependency found")

// Options configures an Analyzer.
type Options struct {
	// ExcludeClasses lists globs of class names to drop silently.
	ExcludeClasses []string `json:"excludeClasses,omitempty"`
	// SkipParse lists globs of file paths included as opaque leaves.
	SkipParse []string `json:"skipParse,omitempty"`
	// ExtraRequires and ExtraUses add dependencies to the named classes.
	ExtraRequires map[string][]string `json:"extraRequires,omitempty"`
	ExtraUses     map[string][]string `json:"extraUses,omitempty"`
	// OptimizeSource neutralizes requires/uses values and alias registrations in Src.
	OptimizeSource bool `json:"optimizeSource,omitempty"`
	// Namespace is the framework namespace, DefaultNamespace when empty.
	Namespace string `json:"namespace,omitempty"`
}

func (o Options) namespace() string {
	if o.Namespace == "" {
		return DefaultNamespace
	}
	return o.Namespace
}

// Analyzer turns source text into a FileDescriptor.
type Analyzer struct {
	opts  Options
	names NameValidator
	log   logger.Sink
}

// New returns an analyzer. A nil sink discards diagnostics.
func New(opts Options, log logger.Sink) *Analyzer {
	if log == nil {
		log = logger.Discard
	}
	return &Analyzer{
		opts:  opts,
		names: NameValidator{Exclude: opts.ExcludeClasses},
		log:   log,
	}
}

// Analyze extracts names and dependencies from src. It returns ErrSkip when
// the file has neither, and an error wrapping ErrMissingNamespace when a short
// name cannot be qualified.
func (a *Analyzer) Analyze(src, filePath string) (*model.FileDescriptor, error) {
	baseName := path.Base(filepath.ToSlash(filePath))

	if len(a.opts.SkipParse) > 0 && fsutil.MatchesPath(filePath, a.opts.SkipParse) {
		a.log.Write("Skip parse " + baseName)
		return &model.FileDescriptor{
			Path:     filePath,
			Names:    []string{baseName},
			Requires: []string{},
			Uses:     []string{},
			Src:      src,
		}, nil
	}

	a.log.Write("Parse " + baseName + "... ")
	x, err := a.extract(src, filePath)
	if err != nil {
		return nil, err
	}

	names := model.Unique(x.defined)
	requires := x.requires
	uses := x.uses
	for _, name := range names {
		requires = append(requires, a.names.Filter(a.opts.ExtraRequires[name]...)...)
		uses = append(uses, a.names.Filter(a.opts.ExtraUses[name]...)...)
	}
	if x.parentName != "" {
		requires = append([]string{x.parentName}, requires...)
	}
	requires = model.Unique(requires)
	uses = model.Unique(uses)

	if len(names) == 0 {
		if len(requires) == 0 && len(uses) == 0 {
			return nil, ErrSkip
		}
		a.log.Ok("Done, no defined class name. Adding as " + baseName)
		names = []string{baseName}
	} else {
		a.log.Ok("Done, defined class names: " + strings.Join(names, ", "))
	}

	d := &model.FileDescriptor{
		Path:       filePath,
		Names:      names,
		ParentName: x.parentName,
		Requires:   requires,
		Uses:       uses,
		Src:        src,
	}
	if x.aliases.Len() > 0 {
		d.AliasNames = x.aliases
	}
	if x.paths.Len() > 0 {
		d.ResolvePaths = x.paths
	}
	if a.opts.OptimizeSource && len(x.edits) > 0 {
		d.Src = applyEdits(x.content, x.edits)
	}
	return d, nil
}

// extraction accumulates what one walk over a syntax tree finds.
type extraction struct {
	ns      string
	path    string
	content []byte
	names   NameValidator
	log     logger.Sink
	rewrite bool

	defined    []string
	parentName string
	requires   []string
	uses       []string
	aliases    *model.MultiMap
	paths      *model.MultiMap
	edits      []edit
	err        error
}

func (a *Analyzer) extract(src, filePath string) (*extraction, error) {
	content := []byte(src)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	defer tree.Close()

	x := &extraction{
		ns:       a.opts.namespace(),
		path:     filePath,
		content:  content,
		names:    a.names,
		log:      a.log,
		rewrite:  a.opts.OptimizeSource,
		requires: []string{},
		uses:     []string{},
		aliases:  model.NewMultiMap(),
		paths:    model.NewMultiMap(),
	}
	root := tree.RootNode()
	x.detectRootNamespace(root)
	x.walk(root)
	if x.err != nil {
		return nil, x.err
	}
	return x, nil
}

func (x *extraction) walk(n *sitter.Node) {
	if x.err != nil {
		return
	}
	switch n.Type() {
	case "comment":
		x.scanComment(n.Content(x.content))
	case "call_expression":
		x.visitCall(n)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			x.walk(c)
		}
	}
}

func (x *extraction) visitCall(call *sitter.Node) {
	callee := memberPath(call.ChildByFieldName("function"), x.content)
	if !strings.HasPrefix(callee, x.ns+".") {
		return
	}
	switch strings.TrimPrefix(callee, x.ns+".") {
	case "define":
		x.visitDefine(call)
	case "application":
		x.visitApplication(call)
	case "require":
		x.visitRequire(call)
	case "ClassManager.addNameAlternateMappings":
		x.visitAliasMappings(call)
	case "Loader.setPath":
		x.visitSetPath(call)
	}
}

// visitDefine handles `Ext.define(name, body)`.
func (x *extraction) visitDefine(call *sitter.Node) {
	args := callArguments(call)
	if len(args) == 0 {
		return
	}

	var owner string
	if raw, ok := stringValue(args[0], x.content); ok && cleanName(raw) != "" {
		owner = cleanName(raw)
		x.defined = append(x.defined, x.names.Filter(raw)...)
	} else if !isBootstrapName(args[0], x.content) {
		x.log.Warn(fmt.Sprintf("Cannot determine class name in define call in %q.", x.path))
	}

	x.defined = append(x.defined, x.names.Filter(alternateClassNames(call.Content(x.content))...)...)

	if len(args) > 1 {
		x.visitClassBody(classBody(args[1]), owner)
	}
}

// visitApplication handles `Ext.application(config)`.
func (x *extraction) visitApplication(call *sitter.Node) {
	x.requires = append(x.requires, x.names.Filter(x.ns+".app.Application")...)

	config := firstObject(callArguments(call))
	if config == nil {
		return
	}
	var owner string
	if raw, ok := stringValue(findProperty(config, "name", x.content), x.content); ok && cleanName(raw) != "" {
		owner = cleanName(raw)
		x.defined = append(x.defined, x.names.Filter(raw)...)

		folder := defaultAppFolder
		if f, ok := stringValue(findProperty(config, "appFolder", x.content), x.content); ok && strings.TrimSpace(f) != "" {
			folder = strings.TrimSpace(f)
		}
		x.paths.Add(owner, folder)
	}
	x.visitClassBody(config, owner)
}

// visitRequire handles `Ext.require('A')` and `Ext.require(['A', 'B'], fn)`.
func (x *extraction) visitRequire(call *sitter.Node) {
	for _, arg := range callArguments(call) {
		if names, ok := stringList(arg, x.content); ok {
			x.requires = append(x.requires, x.names.Filter(names...)...)
		}
	}
}

// visitAliasMappings handles `Ext.ClassManager.addNameAlternateMappings({...})`.
func (x *extraction) visitAliasMappings(call *sitter.Node) {
	obj := firstObject(callArguments(call))
	if obj == nil {
		return
	}
	for _, p := range properties(obj, x.content) {
		alternates, ok := stringList(p.value, x.content)
		if !ok {
			continue
		}
		x.aliases.Add(p.key, alternates...)
	}
	if x.rewrite {
		x.addEdit(call, "void 0")
	}
}

// visitSetPath handles `Ext.Loader.setPath(prefix, path)` and the object form.
func (x *extraction) visitSetPath(call *sitter.Node) {
	args := callArguments(call)
	if len(args) >= 2 {
		prefix, okPrefix := stringValue(args[0], x.content)
		folder, okFolder := stringValue(args[1], x.content)
		if okPrefix && okFolder {
			x.paths.Add(prefix, folder)
		}
		return
	}
	for _, p := range properties(firstObject(args), x.content) {
		if folder, ok := stringValue(p.value, x.content); ok {
			x.paths.Add(p.key, folder)
		}
	}
}

// detectRootNamespace recognizes the framework root file, which starts with
// `var Ext = Ext || {}`, and maps the namespace to the file's source folder.
func (x *extraction) detectRootNamespace(root *sitter.Node) {
	for _, stmt := range namedChildren(root) {
		if !x.declaresRootNamespace(stmt) {
			continue
		}
		dir := path.Dir(filepath.ToSlash(x.path))
		if path.Base(filepath.ToSlash(x.path)) == x.ns+fsutil.ScriptExt {
			x.paths.Add(x.ns, dir)
		} else {
			x.paths.Add(x.ns, fsutil.JoinSlash(dir, "src"))
		}
		return
	}
}

func (x *extraction) declaresRootNamespace(stmt *sitter.Node) bool {
	switch stmt.Type() {
	case "variable_declaration", "lexical_declaration":
		for _, decl := range namedChildren(stmt) {
			if decl.Type() != "variable_declarator" {
				continue
			}
			name := decl.ChildByFieldName("name")
			if name != nil && name.Content(x.content) == x.ns && x.isSelfDefault(decl.ChildByFieldName("value")) {
				return true
			}
		}
	case "expression_statement":
		for _, expr := range namedChildren(stmt) {
			expr = unwrap(expr)
			if expr.Type() != "assignment_expression" {
				continue
			}
			left := expr.ChildByFieldName("left")
			if left != nil && left.Content(x.content) == x.ns && x.isSelfDefault(expr.ChildByFieldName("right")) {
				return true
			}
		}
	}
	return false
}

// isSelfDefault matches `<ns> || {}`.
func (x *extraction) isSelfDefault(n *sitter.Node) bool {
	n = unwrap(n)
	if n == nil || n.Type() != "binary_expression" {
		return false
	}
	op := n.ChildByFieldName("operator")
	left := unwrap(n.ChildByFieldName("left"))
	right := unwrap(n.ChildByFieldName("right"))
	return op != nil && op.Content(x.content) == "||" &&
		left != nil && left.Type() == "identifier" && left.Content(x.content) == x.ns &&
		right != nil && right.Type() == "object"
}
