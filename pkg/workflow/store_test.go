package workflow_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/workflow"
)

func TestStore_RegisterAndGet(t *testing.T) {
	store := workflow.NewStore()
	require.NoError(t, store.Register(validDefinition()))

	def, err := store.Get("uae_lead_scoring")
	require.NoError(t, err)
	assert.Equal(t, "uae_lead_scoring", def.Name)
	assert.Len(t, def.Steps, 3)
}

func TestStore_GetUnknown(t *testing.T) {
	store := workflow.NewStore()

	_, err := store.Get("nope")
	require.Error(t, err)
	assert.Equal(t, errors.KindWorkflowNotFound, errors.KindOf(err))
}

func TestStore_RegisterRejectsInvalid(t *testing.T) {
	store := workflow.NewStore()

	def := validDefinition()
	def.Steps[1].ID = def.Steps[0].ID
	err := store.Register(def)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidWorkflow, errors.KindOf(err))
}

func TestStore_RegisterRejectsCycle(t *testing.T) {
	store := workflow.NewStore()

	def := workflow.Definition{
		Name: "cyclic",
		Steps: []workflow.Step{
			{ID: "a", ToolName: "T", Dependencies: []string{"b"}},
			{ID: "b", ToolName: "T", Dependencies: []string{"a"}},
		},
	}
	err := store.Register(def)
	require.Error(t, err)
	assert.Equal(t, errors.KindCircularDependency, errors.KindOf(err))
}

func TestStore_CopyOnRegister(t *testing.T) {
	store := workflow.NewStore()
	def := validDefinition()
	require.NoError(t, store.Register(def))

	// Mutating the caller's value must not affect the stored definition.
	def.Steps[0].ToolName = "Mutated"
	def.Steps[0].InputMapping["company_name"] = "$.input.mutated"

	stored, err := store.Get("uae_lead_scoring")
	require.NoError(t, err)
	assert.Equal(t, "CompanyQualityTool", stored.Steps[0].ToolName)
	assert.Equal(t, "$.input.company_name", stored.Steps[0].InputMapping["company_name"])
}

func TestStore_List(t *testing.T) {
	store := workflow.NewStore()

	a := validDefinition()
	b := validDefinition()
	b.Name = "another_workflow"
	b.Config.Mode = workflow.ModeParallel
	require.NoError(t, store.Register(a))
	require.NoError(t, store.Register(b))

	infos := store.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "another_workflow", infos[0].Name)
	assert.Equal(t, workflow.ModeParallel, infos[0].Mode)
	assert.Equal(t, "uae_lead_scoring", infos[1].Name)
}

func TestStore_LoadDir(t *testing.T) {
	dir := t.TempDir()

	yamlA := `
name: scoring_a
steps:
  - id: s1
    tool: CompanyQualityTool
`
	yamlB := `
name: scoring_b
config:
  mode: parallel
steps:
  - id: s1
    tool: ContactTierTool
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(yamlA), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(yamlB), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	store := workflow.NewStore()
	n, err := store.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	def, err := store.Get("scoring_b")
	require.NoError(t, err)
	assert.Equal(t, workflow.ModeParallel, def.Config.Mode)
	// Defaults applied on load.
	assert.Equal(t, workflow.DefaultTimeoutMs, def.Config.TimeoutMs)
}

func TestStore_LoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [broken"), 0o644))

	store := workflow.NewStore()
	assert.Error(t, store.LoadFile(path))
}
