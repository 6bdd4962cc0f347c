// Package program runs programs: a supervision tree description paired with an ordered list of actions.
package program

import (
	"fmt"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/tree"
)

// Program is a tree description and the actions to run against it.
type Program struct {
	Tree    tree.Node
	Actions []Action
}

// Action delivers Event to the service named Target.
type Action struct {
	Target string
	Event  servicestatus.Event
}

func (a Action) String() string {
	return fmt.Sprintf("%s:%v", a.Target, a.Event)
}

// UnknownTargetError is returned when an action targets a name that is not a leaf of the tree.
type UnknownTargetError struct {
	// Index of the first offending action.
	Index int
	Name  string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("action %d: unknown target %s", e.Index, e.Name)
}

// Validate checks the tree and that every action targets one of its leaves.
// Validate has no side effects.
func Validate(p Program) error {
	if err := tree.Validate(p.Tree); err != nil {
		return err
	}
	leaves := make(map[string]struct{})
	for _, name := range tree.Leaves(p.Tree) {
		leaves[name] = struct{}{}
	}
	for i, action := range p.Actions {
		if _, ok := leaves[action.Target]; !ok {
			return &UnknownTargetError{Index: i, Name: action.Target}
		}
	}
	return nil
}
