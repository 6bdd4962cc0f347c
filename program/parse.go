package program

import (
	"bytes"
	"fmt"
	"os"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/tree"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// document is the YAML form of a program:
//
//	tree:
//	  group:
//	    name: root
//	    kind: supervisor
//	    args: {restart_interval: 1s}
//	    children:
//	      - service: {name: svc_a, kind: worker, status: down}
//	      - service: {name: svc_b, status: up}
//	actions:
//	  - {target: svc_a, event: online}
//	  - {target: svc_b, event: "starting:operator"}
type document struct {
	Tree    nodeDocument     `yaml:"tree"`
	Actions []actionDocument `yaml:"actions"`
}

type nodeDocument struct {
	Service *serviceDocument `yaml:"service"`
	Group   *groupDocument   `yaml:"group"`
}

type serviceDocument struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Status string `yaml:"status"`
}

type groupDocument struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Args     map[string]string `yaml:"args"`
	Children []nodeDocument    `yaml:"children"`
}

type actionDocument struct {
	Target string `yaml:"target"`
	Event  string `yaml:"event"`
}

// Load reads and parses a program description file.
func Load(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Program{}, xerrors.Errorf("load program: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Program{}, xerrors.Errorf("load program %s: %w", path, err)
	}
	return p, nil
}

// Parse parses a YAML program description. Services default to the worker
// kind and the registered status, groups to the supervisor kind.
func Parse(data []byte) (Program, error) {
	var doc document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return Program{}, xerrors.Errorf("parse program: %w", err)
	}
	root, err := doc.Tree.node("tree")
	if err != nil {
		return Program{}, xerrors.Errorf("parse program: %w", err)
	}
	p := Program{Tree: root, Actions: make([]Action, 0, len(doc.Actions))}
	for i, action := range doc.Actions {
		if action.Target == "" {
			return Program{}, xerrors.Errorf("parse program: action %d: missing target", i)
		}
		event, err := servicestatus.ParseEvent(action.Event)
		if err != nil {
			return Program{}, xerrors.Errorf("parse program: action %d: %w", i, err)
		}
		p.Actions = append(p.Actions, Action{Target: action.Target, Event: event})
	}
	return p, nil
}

func (n nodeDocument) node(at string) (tree.Node, error) {
	switch {
	case n.Service != nil && n.Group != nil:
		return nil, fmt.Errorf("%s: both service and group set", at)
	case n.Service != nil:
		return n.Service.leaf(at)
	case n.Group != nil:
		return n.Group.group(at)
	default:
		return nil, fmt.Errorf("%s: neither service nor group set", at)
	}
}

func (s *serviceDocument) leaf(at string) (tree.Node, error) {
	kind := s.Kind
	if kind == "" {
		kind = tree.KindWorker
	}
	status := servicestatus.StatusRegistered
	if s.Status != "" {
		var err error
		if status, err = servicestatus.ParseStatus(s.Status); err != nil {
			return nil, fmt.Errorf("%s/%s: %w", at, s.Name, err)
		}
	}
	return tree.NewLeaf(s.Name, kind, status), nil
}

func (g *groupDocument) group(at string) (tree.Node, error) {
	kind := g.Kind
	if kind == "" {
		kind = tree.KindSupervisor
	}
	at = at + "/" + g.Name
	children := make([]tree.Node, 0, len(g.Children))
	for _, childDoc := range g.Children {
		child, err := childDoc.node(at)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return tree.NewGroup(g.Name, kind, g.Args, children...), nil
}
