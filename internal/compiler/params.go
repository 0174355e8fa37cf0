package compiler

import (
	"fmt"
	"os"
	"strings"

	"github.com/stc-project/stc/internal/scenario"
	"github.com/stc-project/stc/pkg/stcerrors"
)

const maxSubstitutionPasses = 32

// collectParameters gathers the <parameters><param name="" value=""/></parameters>
// defaults from root, then overlays the process environment: an
// environment variable with a matching name wins over the scenario's
// own default.
func collectParameters(root *scenario.Element) map[string]string {
	params := make(map[string]string)
	for _, pset := range root.Elements("parameters") {
		for _, p := range pset.Elements("param") {
			name, ok := p.Attr("name")
			if !ok {
				continue
			}
			params[name] = p.AttrDefault("value", "")
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, known := params[k]; known {
			params[k] = v
		}
	}
	return params
}

// substituteTree rewrites every attribute value in the subtree rooted at
// e, replacing ${name} references with params[name] recursively until no
// further substitution occurs. An unresolved ${name} is a fatal error.
func substituteTree(e *scenario.Element, params map[string]string) error {
	if e == nil {
		return nil
	}
	for name, value := range e.Attrs {
		resolved, err := substituteString(value, params)
		if err != nil {
			return fmt.Errorf("attribute %q of <%s>: %w", name, e.Name, err)
		}
		e.SetAttr(name, resolved)
	}
	for _, child := range e.Children {
		if err := substituteTree(child, params); err != nil {
			return err
		}
	}
	return nil
}

// substituteString expands ${name} references to a fixed point, failing
// if an unknown name is referenced or if expansion does not converge
// within maxSubstitutionPasses (a substitution cycle).
func substituteString(s string, params map[string]string) (string, error) {
	for pass := 0; pass < maxSubstitutionPasses; pass++ {
		next, changed, err := substituteOnce(s, params)
		if err != nil {
			return "", err
		}
		if !changed {
			return next, nil
		}
		s = next
	}
	return "", stcerrors.NewValidationError("", fmt.Sprintf("parameter substitution did not converge for %q", s), nil)
}

func substituteOnce(s string, params map[string]string) (string, bool, error) {
	var b strings.Builder
	changed := false
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			b.WriteString(s[i:])
			break
		}
		start += i
		end := strings.Index(s[start:], "}")
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		end += start
		name := s[start+2 : end]
		val, ok := params[name]
		if !ok {
			return "", false, stcerrors.NewValidationError(name, fmt.Sprintf("undefined parameter ${%s}", name), nil)
		}
		b.WriteString(s[i:start])
		b.WriteString(val)
		changed = true
		i = end + 1
	}
	return b.String(), changed, nil
}
