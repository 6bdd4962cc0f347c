// Package tree builds supervision trees of named services from a declarative description.
package tree

import (
	servicestatus "github.com/einride/servicestatus-go"
)

// Node is a node of a supervision tree: either a *Leaf or a *Group.
type Node interface {
	// Name of the service or group.
	Name() string
	isNode()
}

// ServiceDesc describes a leaf service.
type ServiceDesc struct {
	Name           string
	Kind           string
	StartingStatus servicestatus.Status
}

// GroupDesc describes a grouping node.
type GroupDesc struct {
	Name string
	Kind string
	Args map[string]string
}

// Leaf is a tree node representing one tracked service.
type Leaf struct {
	Service ServiceDesc
}

// Group is a tree node that supervises its children but is not itself tracked.
type Group struct {
	Group    GroupDesc
	Children []Node
}

var (
	_ Node = &Leaf{}
	_ Node = &Group{}
)

// Name returns the service name.
func (l *Leaf) Name() string { return l.Service.Name }

func (*Leaf) isNode() {}

// Name returns the group name.
func (g *Group) Name() string { return g.Group.Name }

func (*Group) isNode() {}

// NewLeaf returns a leaf of the given kind.
func NewLeaf(name, kind string, startingStatus servicestatus.Status) *Leaf {
	return &Leaf{Service: ServiceDesc{Name: name, Kind: kind, StartingStatus: startingStatus}}
}

// NewGroup returns a group of the given kind.
func NewGroup(name, kind string, args map[string]string, children ...Node) *Group {
	return &Group{Group: GroupDesc{Name: name, Kind: kind, Args: args}, Children: children}
}

// Walk calls fn for every node in depth-first order with the path of names from the root.
func Walk(root Node, fn func(path []string, node Node)) {
	walk(root, nil, fn)
}

func walk(node Node, path []string, fn func([]string, Node)) {
	if node == nil {
		return
	}
	path = append(path[:len(path):len(path)], node.Name())
	fn(path, node)
	if group, ok := node.(*Group); ok {
		for _, child := range group.Children {
			walk(child, path, fn)
		}
	}
}

// Leaves returns the names of all leaves in depth-first order.
func Leaves(root Node) []string {
	var names []string
	Walk(root, func(_ []string, node Node) {
		if leaf, ok := node.(*Leaf); ok {
			names = append(names, leaf.Service.Name)
		}
	})
	return names
}

// Validate checks that every node is named and that leaf names are unique across the tree.
func Validate(root Node) error {
	if root == nil {
		return ErrEmptyTree
	}
	var err error
	seen := make(map[string]struct{})
	Walk(root, func(path []string, node Node) {
		if err != nil {
			return
		}
		if node.Name() == "" {
			err = &InvalidNodeError{Path: path, Reason: "empty name"}
			return
		}
		if group, ok := node.(*Group); ok {
			for _, child := range group.Children {
				if child == nil {
					err = &InvalidNodeError{Path: path, Reason: "nil child"}
					return
				}
			}
			return
		}
		name := node.Name()
		if _, ok := seen[name]; ok {
			err = &DuplicateLeafError{Name: name}
			return
		}
		seen[name] = struct{}{}
	})
	return err
}
