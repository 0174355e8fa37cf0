package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stc-project/stc/internal/scenario"
	"github.com/stc-project/stc/pkg/stcerrors"
)

// expandScenario substitutes root's own parameters, then recursively
// expands every <import>, returning a flat list of the top-level
// step/group/dependency elements ready for instantiation, plus the
// resolved ${name} -> value table used for that substitution. Nested
// group structure is preserved; only the top level of each imported
// scenario is merged into the caller's list.
func expandScenario(doc *scenario.Document, baseDir string) ([]*scenario.Element, map[string]string, error) {
	params := collectParameters(doc.Root)
	if err := substituteTree(doc.Root, params); err != nil {
		return nil, nil, err
	}
	visiting := map[string]bool{}
	if abs, err := filepath.Abs(doc.Path); err == nil {
		visiting[abs] = true
	}
	elements, err := expandChildren(doc.Root, baseDir, visiting)
	if err != nil {
		return nil, nil, err
	}
	return elements, params, nil
}

func expandChildren(root *scenario.Element, baseDir string, visiting map[string]bool) ([]*scenario.Element, error) {
	var out []*scenario.Element
	for _, child := range root.Children {
		switch child.Name {
		case "step", "group", "dependency":
			out = append(out, child)
		case "import":
			expanded, err := expandImport(child, baseDir, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		case "parameters":
			// already consumed by the caller's substitution pass
		}
	}
	return out, nil
}

func expandImport(importEl *scenario.Element, baseDir string, visiting map[string]bool) ([]*scenario.Element, error) {
	file, ok := importEl.Attr("file")
	if !ok || file == "" {
		return nil, stcerrors.NewValidationError("import", "import element requires a file attribute", nil)
	}
	path := filepath.Join(baseDir, file)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, stcerrors.NewValidationError("import", fmt.Sprintf("cannot resolve import path %q", path), err)
	}
	if visiting[abs] {
		return nil, stcerrors.NewValidationError("import", fmt.Sprintf("import cycle detected at %q", path), nil)
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	subDoc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}

	subParams := collectParameters(subDoc.Root)
	if err := substituteTree(subDoc.Root, subParams); err != nil {
		return nil, err
	}

	elements, err := expandChildren(subDoc.Root, filepath.Dir(path), visiting)
	if err != nil {
		return nil, err
	}

	namespace := importEl.AttrDefault("namespace", "")
	if namespace != "" {
		known := map[string]bool{}
		collectNames(elements, known)
		renameElements(elements, namespace, known)
	}

	// Dependency overrides nested inside the <import> element add extra
	// requires onto specific (already namespaced) members.
	for _, override := range importEl.Elements("dependency") {
		target := override.AttrDefault("step", "")
		if namespace != "" {
			target = namespace + "." + target
		}
		extra := override.AttrDefault("requires", "")
		if extra == "" || target == "" {
			continue
		}
		el := findByName(elements, target)
		if el == nil {
			return nil, stcerrors.NewValidationError(target, fmt.Sprintf("dependency override references unknown member %q of import %q", target, file), nil)
		}
		mergeRequires(el, extra)
	}

	return elements, nil
}

// collectNames gathers every step/group name declared in elements,
// recursing into group membership, using names as declared (pre-rename).
func collectNames(elements []*scenario.Element, known map[string]bool) {
	for _, el := range elements {
		switch el.Name {
		case "step", "group":
			if name, ok := el.Attr("name"); ok {
				known[name] = true
			}
			if el.Name == "group" {
				collectNames(el.Children, known)
			}
		}
	}
}

// renameElements prefixes every known step/group name (and references to
// known names in requires/dependency attributes) with namespace.
func renameElements(elements []*scenario.Element, namespace string, known map[string]bool) {
	for _, el := range elements {
		switch el.Name {
		case "step", "group":
			if name, ok := el.Attr("name"); ok {
				el.SetAttr("name", namespace+"."+name)
			}
			if requires, ok := el.Attr("requires"); ok {
				el.SetAttr("requires", renameRequires(requires, namespace, known))
			}
			if el.Name == "group" {
				renameElements(el.Children, namespace, known)
			}
		case "dependency":
			if step, ok := el.Attr("step"); ok && known[step] {
				el.SetAttr("step", namespace+"."+step)
			}
			if requires, ok := el.Attr("requires"); ok {
				el.SetAttr("requires", renameRequires(requires, namespace, known))
			}
		}
	}
}

func renameRequires(requires, namespace string, known map[string]bool) string {
	tokens := splitRequires(requires)
	for i, tok := range tokens {
		soft := strings.HasPrefix(tok, "!")
		name := strings.TrimPrefix(tok, "!")
		if known[name] {
			name = namespace + "." + name
		}
		if soft {
			tokens[i] = "!" + name
		} else {
			tokens[i] = name
		}
	}
	return strings.Join(tokens, ",")
}

func splitRequires(requires string) []string {
	var out []string
	for _, tok := range strings.Split(requires, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func findByName(elements []*scenario.Element, name string) *scenario.Element {
	for _, el := range elements {
		if el.Name != "step" && el.Name != "group" {
			continue
		}
		if el.AttrDefault("name", "") == name {
			return el
		}
		if el.Name == "group" {
			if found := findByName(el.Children, name); found != nil {
				return found
			}
		}
	}
	return nil
}

func mergeRequires(el *scenario.Element, extra string) {
	existing := splitRequires(el.AttrDefault("requires", ""))
	existing = append(existing, splitRequires(extra)...)
	el.SetAttr("requires", strings.Join(existing, ","))
}
