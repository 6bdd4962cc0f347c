package program

import (
	"os"
	"path/filepath"
	"testing"

	servicestatus "github.com/einride/servicestatus-go"
	"github.com/einride/servicestatus-go/tree"
	"github.com/stretchr/testify/require"
)

const exampleProgram = `
tree:
  group:
    name: root
    args: {restart_interval: 1s}
    children:
      - service: {name: svc_a, kind: worker, status: down}
      - group:
          name: inner
          kind: supervisor
          children:
            - service: {name: svc_b, status: up}
            - service: {name: svc_c}
actions:
  - {target: svc_a, event: online}
  - {target: svc_b, event: offline}
  - {target: svc_c, event: "starting:operator"}
  - {target: svc_c, event: crash}
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(exampleProgram))
	require.NoError(t, err)
	require.Equal(t, Program{
		Tree: tree.NewGroup("root", tree.KindSupervisor, map[string]string{"restart_interval": "1s"},
			tree.NewLeaf("svc_a", tree.KindWorker, servicestatus.StatusDown),
			tree.NewGroup("inner", tree.KindSupervisor, nil,
				tree.NewLeaf("svc_b", tree.KindWorker, servicestatus.StatusUp),
				tree.NewLeaf("svc_c", tree.KindWorker, servicestatus.StatusRegistered),
			),
		),
		Actions: []Action{
			{Target: "svc_a", Event: servicestatus.Online()},
			{Target: "svc_b", Event: servicestatus.Offline()},
			{Target: "svc_c", Event: servicestatus.Starting("operator")},
			{Target: "svc_c", Event: servicestatus.Crash()},
		},
	}, p)
	require.NoError(t, Validate(p))
}

func TestParse_Errors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		document string
		expected string
	}{
		{
			name:     "empty",
			document: "",
			expected: "parse program: EOF",
		},
		{
			name:     "unknown field",
			document: "tree: {service: {name: a}}\nextra: 1\n",
			expected: "field extra not found",
		},
		{
			name:     "no node",
			document: "tree: {}\n",
			expected: "tree: neither service nor group set",
		},
		{
			name:     "both node types",
			document: "tree: {service: {name: a}, group: {name: b}}\n",
			expected: "tree: both service and group set",
		},
		{
			name:     "unknown status",
			document: "tree: {group: {name: g, children: [{service: {name: a, status: sleeping}}]}}\n",
			expected: `tree/g/a: unknown status "sleeping"`,
		},
		{
			name:     "unknown event",
			document: "tree: {service: {name: a}}\nactions: [{target: a, event: explode}]\n",
			expected: `action 0: unknown event "explode"`,
		},
		{
			name:     "missing target",
			document: "tree: {service: {name: a}}\nactions: [{event: online}]\n",
			expected: "action 0: missing target",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.document))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expected)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleProgram), 0o600))
	p, err := Load(path)
	require.NoError(t, err)
	require.Len(t, p.Actions, 4)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	p := twoServiceProgram(Action{Target: "group", Event: servicestatus.Online()})
	// groups are not valid targets
	require.Equal(t, &UnknownTargetError{Index: 0, Name: "group"}, Validate(p))
	require.Equal(t, tree.ErrEmptyTree, Validate(Program{}))
}
