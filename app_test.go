package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/lddmodder/brickedit/pkg/editor"
	"github.com/lddmodder/brickedit/pkg/geom"
	"github.com/lddmodder/brickedit/pkg/project"
	"github.com/lddmodder/brickedit/pkg/tessellate"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := &Config{WorkDir: t.TempDir(), LogLevel: "debug", Compression: 1}
	a := NewApp(cfg, zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func readExample(t *testing.T) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("examples", "brick_1x1.lisp"))
	require.NoError(t, err)
	return string(src)
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BRICKEDIT_WORK_DIR", t.TempDir())
	t.Setenv("BRICKEDIT_LOG_LEVEL", "error")
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ----------------------------------------------------------------------------
// App
// ----------------------------------------------------------------------------

func TestAppRequiresProject(t *testing.T) {
	a := testApp(t)

	_, err := a.Info()
	assert.ErrorIs(t, err, editor.ErrNoProject)
	_, err = a.RunScript("(part-id 1)")
	assert.ErrorIs(t, err, editor.ErrNoProject)
	_, err = a.WriteCollisions(t.TempDir())
	assert.ErrorIs(t, err, editor.ErrNoProject)
	assert.ErrorIs(t, a.Save(filepath.Join(t.TempDir(), "x.lpp")), editor.ErrNoProject)
}

func TestAppImportWithoutLDDPath(t *testing.T) {
	_, err := testApp(t).ImportPart(3001)
	assert.ErrorIs(t, err, ErrNoLDDPath)
}

func TestAppScriptRoundTrip(t *testing.T) {
	a := testApp(t)
	a.NewProject(0, "")

	edits, err := a.RunScript(readExample(t))
	require.NoError(t, err)
	assert.Len(t, edits, 5)
	assert.True(t, a.Editor().IsModified())
	assert.Equal(t, 1, a.Editor().History().UndoCount())

	path := filepath.Join(t.TempDir(), "3005.lpp")
	require.NoError(t, a.Save(path))
	assert.False(t, a.Editor().IsModified())

	b := testApp(t)
	_, err = b.Open(path)
	require.NoError(t, err)
	info, err := b.Info()
	require.NoError(t, err)
	assert.Equal(t, 3005, info.PartID)
	assert.Equal(t, "Brick 1 x 1", info.Description)
	assert.Equal(t, 2, info.Connections)
	assert.Equal(t, 2, info.Collisions)
	assert.Equal(t, 1, info.Bones)
	require.Len(t, info.Surfaces, 1)
	assert.Equal(t, 0, info.Surfaces[0].ID)
}

func TestAppScriptErrors(t *testing.T) {
	a := testApp(t)
	a.NewProject(1, "")

	_, err := a.RunScript("(part-id")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.NotEmpty(t, se.Errors)
	assert.Contains(t, se.Error(), "script failed")
	assert.False(t, a.Editor().IsModified())
}

func TestAppWriteCollisions(t *testing.T) {
	a := testApp(t)
	a.NewProject(3005, "")
	_, err := a.RunScript(readExample(t))
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := a.WriteCollisions(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		g, err := geom.FromFile(p)
		require.NoError(t, err)
		assert.NotZero(t, g.TriangleCount(), p)
	}
}

func TestAppWriteCollisionsStaysInDir(t *testing.T) {
	a := testApp(t)
	p := a.NewProject(3005, "")
	c := project.NewSphereCollision(0.5)
	p.Collisions.Add(c)
	c.Name = "../escape"

	root := t.TempDir()
	dir := filepath.Join(root, "preview")
	paths, err := a.WriteCollisions(dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, c.ID+geom.FileExt), paths[0])
	assert.NoFileExists(t, filepath.Join(root, "escape"+geom.FileExt))
}

func TestPreviewFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Collision1", "Collision1.geom"},
		{"", "abcd1234.geom"},
		{"..", "abcd1234.geom"},
		{"../x", "abcd1234.geom"},
		{`a\b`, "abcd1234.geom"},
	}
	for _, tt := range tests {
		got := previewFileName(tessellate.Preview{ElementID: "abcd1234", Name: tt.name})
		assert.Equal(t, tt.want, got, "name %q", tt.name)
	}
}

func TestAppValidate(t *testing.T) {
	a := testApp(t)
	a.NewProject(1, "")
	msgs, err := a.Validate()
	require.NoError(t, err)
	assert.False(t, project.HasErrors(msgs))
	assert.True(t, a.Editor().IsPartValidated())
}

// ----------------------------------------------------------------------------
// CLI
// ----------------------------------------------------------------------------

func TestCLINewInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3001.lpp")
	out, err := runCLI(t, "new", path, "--part-id", "3001", "--description", "Brick 2 x 4")
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	out, err = runCLI(t, "info", path)
	require.NoError(t, err)
	var info ProjectInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, 3001, info.PartID)
	assert.Equal(t, "Brick 2 x 4", info.Description)
	assert.Len(t, info.Surfaces, 1)
}

func TestCLIScriptExtractPack(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "part.lpp")
	_, err := runCLI(t, "new", archive)
	require.NoError(t, err)

	out, err := runCLI(t, "script", archive, filepath.Join("examples", "brick_1x1.lisp"))
	require.NoError(t, err)
	assert.Contains(t, out, "set part ID 3005")

	dir := filepath.Join(tmp, "extracted")
	_, err = runCLI(t, "extract", archive, dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, project.ManifestName))

	packed := filepath.Join(tmp, "packed.lpp")
	_, err = runCLI(t, "pack", dir, packed)
	require.NoError(t, err)

	out, err = runCLI(t, "validate", packed)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	out, err = runCLI(t, "collisions", packed, filepath.Join(tmp, "preview"))
	require.NoError(t, err)
	assert.Contains(t, out, geom.FileExt)
}

func TestCLIErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing argument", []string{"info"}},
		{"missing project", []string{"info", filepath.Join(t.TempDir(), "nope.lpp")}},
		{"bad part ID", []string{"import", "abc", "out.lpp"}},
		{"import without LDD", []string{"import", "3001", filepath.Join(t.TempDir(), "out.lpp")}},
		{"bad log level", []string{"--log-level", "loud", "info", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
