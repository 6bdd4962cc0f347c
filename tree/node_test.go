package tree

import (
	"testing"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/stretchr/testify/require"
)

func exampleTree() Node {
	return NewGroup("root", KindSupervisor, nil,
		NewLeaf("svc_a", KindWorker, servicestatus.StatusDown),
		NewGroup("inner", KindSupervisor, map[string]string{ArgRestartInterval: "10ms"},
			NewLeaf("svc_b", KindWorker, servicestatus.StatusUp),
			NewLeaf("svc_c", KindOneShot, servicestatus.StatusRegistered),
		),
	)
}

func TestLeaves(t *testing.T) {
	require.Equal(t, []string{"svc_a", "svc_b", "svc_c"}, Leaves(exampleTree()))
	require.Equal(t, []string{"solo"}, Leaves(NewLeaf("solo", KindWorker, servicestatus.StatusUp)))
	require.Empty(t, Leaves(NewGroup("empty", KindSupervisor, nil)))
}

func TestWalk_Paths(t *testing.T) {
	var paths [][]string
	Walk(exampleTree(), func(path []string, _ Node) {
		paths = append(paths, path)
	})
	require.Equal(t, [][]string{
		{"root"},
		{"root", "svc_a"},
		{"root", "inner"},
		{"root", "inner", "svc_b"},
		{"root", "inner", "svc_c"},
	}, paths)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		root     Node
		expected error
	}{
		{
			name: "valid",
			root: exampleTree(),
		},
		{
			name:     "nil root",
			expected: ErrEmptyTree,
		},
		{
			name: "duplicate leaf in different groups",
			root: NewGroup("root", KindSupervisor, nil,
				NewLeaf("svc", KindWorker, servicestatus.StatusUp),
				NewGroup("inner", KindSupervisor, nil,
					NewLeaf("svc", KindWorker, servicestatus.StatusUp),
				),
			),
			expected: &DuplicateLeafError{Name: "svc"},
		},
		{
			name: "empty name",
			root: NewGroup("root", KindSupervisor, nil,
				NewLeaf("", KindWorker, servicestatus.StatusUp),
			),
			expected: &InvalidNodeError{Path: []string{"root", ""}, Reason: "empty name"},
		},
		{
			name:     "nil child",
			root:     NewGroup("root", KindSupervisor, nil, nil),
			expected: &InvalidNodeError{Path: []string{"root"}, Reason: "nil child"},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Validate(tc.root))
		})
	}
}
