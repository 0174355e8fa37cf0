package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stc-project/stc/internal/flow"
	"github.com/stc-project/stc/internal/scenario"
	"github.com/stc-project/stc/pkg/stcerrors"
)

type pendingReq struct {
	target string
	soft   bool
}

// buildFlow instantiates every step/group element into flow.Node values,
// wires their dependency edges (own requires plus parent-group-inherited
// requires, transitively), and freezes the result into a ProcessFlow.
func buildFlow(elements []*scenario.Element) (*flow.ProcessFlow, error) {
	b := flow.NewBuilder()
	nodes := map[string]*flow.Node{}
	ownReqs := map[string][]pendingReq{}

	if err := instantiate(elements, "", b, nodes, ownReqs); err != nil {
		return nil, err
	}

	for name, node := range nodes {
		edges := effectiveRequires(node, nodes, ownReqs)
		for _, req := range edges {
			b.AddEdge(name, req.target, req.soft)
		}
	}

	return b.Finish()
}

func instantiate(elements []*scenario.Element, parentGroup string, b *flow.Builder, nodes map[string]*flow.Node, ownReqs map[string][]pendingReq) error {
	v := validatorInstance()
	for _, el := range elements {
		switch el.Name {
		case "step":
			name := el.AttrDefault("name", "")
			exec := el.AttrDefault("exec", "")
			if err := v.Struct(stepAttrs{Name: name, Exec: exec}); err != nil {
				return stcerrors.NewValidationError(name, err.Error(), err)
			}
			delay, err := parseDelay(el.AttrDefault("delay", ""))
			if err != nil {
				return stcerrors.NewValidationError(name, fmt.Sprintf("invalid delay: %v", err), err)
			}
			env, err := parseEnv(el.AttrDefault("env", ""))
			if err != nil {
				return stcerrors.NewValidationError(name, fmt.Sprintf("invalid env: %v", err), err)
			}
			node := &flow.Node{
				Name:        name,
				Kind:        flow.KindStep,
				Command:     exec,
				Description: el.AttrDefault("description", ""),
				Env:         env,
				Cwd:         el.AttrDefault("cwd", ""),
				If:          el.AttrDefault("if", ""),
				Unless:      el.AttrDefault("unless", ""),
				Delay:       delay,
				ParentGroup: parentGroup,
			}
			if err := b.AddNode(node); err != nil {
				return err
			}
			nodes[name] = node
			ownReqs[name] = parseRequires(el.AttrDefault("requires", ""))

		case "group":
			name := el.AttrDefault("name", "")
			if err := v.Struct(groupAttrs{Name: name}); err != nil {
				return stcerrors.NewValidationError(name, err.Error(), err)
			}
			children := directChildNames(el.Children)
			node := &flow.Node{
				Name:        name,
				Kind:        flow.KindGroup,
				Description: el.AttrDefault("description", ""),
				ParentGroup: parentGroup,
				Children:    children,
			}
			if err := b.AddNode(node); err != nil {
				return err
			}
			nodes[name] = node
			ownReqs[name] = parseRequires(el.AttrDefault("requires", ""))

			if err := instantiate(el.Children, name, b, nodes, ownReqs); err != nil {
				return err
			}

		case "dependency":
			step := el.AttrDefault("step", "")
			extra := parseRequires(el.AttrDefault("requires", ""))
			ownReqs[step] = append(ownReqs[step], extra...)
		}
	}
	return nil
}

func directChildNames(children []*scenario.Element) []string {
	var out []string
	for _, c := range children {
		if c.Name == "step" || c.Name == "group" {
			out = append(out, c.AttrDefault("name", ""))
		}
	}
	return out
}

// effectiveRequires computes a node's own requires plus, walking up its
// chain of parent groups, each ancestor's own requires (dedup by
// target; an inherited soft edge stays soft, an inherited hard edge
// stays hard).
func effectiveRequires(node *flow.Node, nodes map[string]*flow.Node, ownReqs map[string][]pendingReq) []pendingReq {
	seen := map[string]pendingReq{}
	cur := node
	for cur != nil {
		for _, req := range ownReqs[cur.Name] {
			if existing, ok := seen[req.target]; !ok || (existing.soft && !req.soft) {
				seen[req.target] = req
			}
		}
		if cur.ParentGroup == "" {
			break
		}
		cur = nodes[cur.ParentGroup]
	}
	out := make([]pendingReq, 0, len(seen))
	for _, req := range seen {
		out = append(out, req)
	}
	return out
}

func parseRequires(raw string) []pendingReq {
	var out []pendingReq
	for _, tok := range splitRequires(raw) {
		soft := strings.HasPrefix(tok, "!")
		name := strings.TrimPrefix(tok, "!")
		if name == "" {
			continue
		}
		out = append(out, pendingReq{target: name, soft: soft})
	}
	return out
}

func parseDelay(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseEnv(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	env := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed env entry %q, want K=V", pair)
		}
		env[k] = v
	}
	return env, nil
}
