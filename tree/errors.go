package tree

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// ErrEmptyTree is returned when building or validating a nil tree.
var ErrEmptyTree = xerrors.New("empty tree")

// DuplicateLeafError is returned when a leaf name appears more than once in a tree.
type DuplicateLeafError struct {
	Name string
}

func (e *DuplicateLeafError) Error() string {
	return fmt.Sprintf("duplicate leaf %s", e.Name)
}

// InvalidNodeError is returned for malformed nodes.
type InvalidNodeError struct {
	Path   []string
	Reason string
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("invalid node %s: %s", strings.Join(e.Path, "/"), e.Reason)
}

// ConstructionError is returned when a node of the tree could not be constructed.
//
// Nothing is rolled back: Registered lists the leaves registered before the
// failure, which the caller is responsible for tearing down.
type ConstructionError struct {
	Path       []string
	Cause      error
	Registered []string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s: %v", strings.Join(e.Path, "/"), e.Cause)
}

func (e *ConstructionError) Unwrap() error {
	return e.Cause
}
