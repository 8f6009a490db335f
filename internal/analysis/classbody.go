package analysis

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Association base classes pulled in by belongsTo and hasMany.
const (
	belongsToBase = "data.association.BelongsTo"
	hasManyBase   = "data.association.HasMany"
)

// visitClassBody reads the recognized properties of a class body in source
// order. owner is the class being defined and supplies the namespace for short
// names. Only the first occurrence of a key counts.
func (x *extraction) visitClassBody(body *sitter.Node, owner string) {
	if body == nil {
		return
	}
	props := properties(body, x.content)
	hasModels := false
	for _, p := range props {
		if p.key == "models" {
			hasModels = true
		}
	}

	seen := make(map[string]bool, len(props))
	for _, p := range props {
		if seen[p.key] {
			continue
		}
		seen[p.key] = true

		switch p.key {
		case "extend":
			x.visitExtend(p.value)
		case "mixins":
			x.visitMixins(p.value)
		case "requires", "uses":
			names, ok := stringList(p.value, x.content)
			if !ok {
				continue
			}
			if p.key == "requires" {
				x.requires = append(x.requires, x.names.Filter(names...)...)
			} else {
				x.uses = append(x.uses, x.names.Filter(names...)...)
			}
			if x.rewrite {
				x.addEdit(p.value, "[]")
			}
		case "controllers", "models", "model", "views", "stores":
			if p.key == "model" && hasModels {
				continue
			}
			if err := x.visitShortNames(p.key, p.value, owner); err != nil {
				x.err = err
				return
			}
		case "belongsTo":
			x.uses = append(x.uses, x.names.Filter(x.associationTargets(p.value, false)...)...)
			x.requires = append(x.requires, x.names.Filter(x.ns+"."+belongsToBase)...)
		case "hasMany":
			targets := x.associationTargets(p.value, true)
			if targets == nil {
				x.log.Warn(fmt.Sprintf("Unsupported hasMany value in %q: expected an object or an array of objects with a model.", x.path))
			}
			x.uses = append(x.uses, x.names.Filter(targets...)...)
			x.requires = append(x.requires, x.names.Filter(x.ns+"."+hasManyBase)...)
		}
	}
}

func (x *extraction) visitExtend(v *sitter.Node) {
	raw, ok := stringValue(v, x.content)
	if !ok {
		return
	}
	name, ok := x.names.Valid(raw)
	if !ok {
		return
	}
	if x.parentName == "" {
		x.parentName = name
		return
	}
	x.requires = append(x.requires, name)
}

func (x *extraction) visitMixins(v *sitter.Node) {
	switch unwrap(v).Type() {
	case "array":
		names, _ := stringList(v, x.content)
		x.requires = append(x.requires, x.names.Filter(names...)...)
	case "object":
		for _, p := range properties(v, x.content) {
			if raw, ok := stringValue(p.value, x.content); ok {
				x.requires = append(x.requires, x.names.Filter(raw)...)
			}
		}
	}
}

var shortNamePackages = map[string]string{
	"controllers": "controller",
	"models":      "model",
	"model":       "model",
	"views":       "view",
	"stores":      "store",
}

// visitShortNames qualifies controller, model, view and store references and
// adds them to uses.
func (x *extraction) visitShortNames(key string, v *sitter.Node, owner string) error {
	short, ok := stringList(v, x.content)
	if !ok || len(short) == 0 {
		return nil
	}
	names, err := x.names.Extrapolate(shortNamePackages[key], short, owner)
	if err != nil {
		return fmt.Errorf("%s: %w", x.path, err)
	}
	x.uses = append(x.uses, names...)
	return nil
}

// associationTargets returns the model names referenced by an association
// value. belongsTo accepts strings and `{model: ...}` objects, alone or in an
// array. With objectsOnly, as for hasMany, every element must be an object with
// a string model; any other shape yields nil.
func (x *extraction) associationTargets(v *sitter.Node, objectsOnly bool) []string {
	v = unwrap(v)
	elements := []*sitter.Node{v}
	if v.Type() == "array" {
		elements = namedChildren(v)
	}
	targets := []string{}
	for _, el := range elements {
		if !objectsOnly {
			if s, ok := stringValue(el, x.content); ok {
				targets = append(targets, s)
				continue
			}
		}
		if model, ok := stringValue(findProperty(el, "model", x.content), x.content); ok {
			targets = append(targets, model)
			continue
		}
		if objectsOnly {
			return nil
		}
	}
	return targets
}
