package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/value"
)

const lampCatalog = `package parts

part: beacon: {
	name:        "Beacon"
	description: "A lamp that starts lit"
	behavior:    "lamp"
	traits: ["placeable", "visible", "output"]
	properties: [
		{id: "LIT", kind: "bool", default: true},
		{id: "TINT", kind: "color", default: "#00ff00ff", access: "user"},
	]
}
`

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	return le.Code
}

// =============================================================================
// CompilePart
// =============================================================================

func TestCompilePart(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		part: belt: {
			behavior: "conveyor"
			traits: ["placeable", "transport"]
			properties: [
				{id: "SPEED", kind: "float", default: 0.5, persistent: true},
				{id: "DIRECTION", kind: "text", default: "UP", key: "dir", name: "Direction"},
				{id: "COUNT", kind: "int", default: 3},
			]
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompilePart(v.LookupPath(cue.ParsePath("part.belt")))
	require.NoError(t, err)

	assert.Equal(t, "belt", spec.ID)
	assert.Equal(t, "conveyor", spec.Behavior)
	assert.Equal(t, []string{"placeable", "transport"}, spec.Traits)
	require.Len(t, spec.Properties, 3)
	assert.Equal(t, 0.5, spec.Properties[0].Default)
	assert.True(t, spec.Properties[0].Persistent)
	assert.Equal(t, "UP", spec.Properties[1].Default)
	assert.Equal(t, "dir", spec.Properties[1].Key)
	assert.Equal(t, int64(3), spec.Properties[2].Default)
}

func TestCompilePart_MissingBehavior(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`part: bad: { traits: ["placeable"] }`)
	require.NoError(t, v.Err())

	_, err := CompilePart(v.LookupPath(cue.ParsePath("part.bad")))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "behavior", ce.Field)
}

func TestCompilePart_PropertyWithoutKind(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`part: bad: { behavior: "life", properties: [{id: "ALIVE"}] }`)
	require.NoError(t, v.Err())

	_, err := CompilePart(v.LookupPath(cue.ParsePath("part.bad")))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "properties[0].kind", ce.Field)
	assert.Equal(t, ErrInvalidKind, MapFieldToErrorCode(ce.Field))
}

// =============================================================================
// Load
// =============================================================================

func TestLoad(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"beacon.cue": lampCatalog})

	loaded, err := Load(dir, parts.Library())
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	p := loaded[0]
	assert.Equal(t, "beacon", p.ID())
	assert.Equal(t, "Beacon", p.Name())
	assert.True(t, p.Traits().Has(part.TraitPlaceable|part.CategoryOutput))

	lit, ok := p.Property(value.PropLit)
	require.True(t, ok)
	assert.Equal(t, value.Bool(true), lit.Default)
	assert.Equal(t, DefaultAccess, lit.Access)

	tint, ok := p.Property(value.PropTint)
	require.True(t, ok)
	assert.Equal(t, value.AccessUser, tint.Access)
	assert.Equal(t, value.KindColor, tint.Default.Kind())
}

func TestLoad_AcrossFiles(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"beacon.cue": lampCatalog,
		"block.cue": `package parts

part: block: {
	behavior: "wall"
	traits: ["placeable", "solid"]
}
`,
	})

	specs, err := LoadSpecs(dir)
	require.NoError(t, err)
	var ids []string
	for _, s := range specs {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"beacon", "block"}, ids)
}

func TestLoad_BoundPartRuns(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"beacon.cue": lampCatalog})
	loaded, err := Load(dir, parts.Library())
	require.NoError(t, err)

	reg, err := parts.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Include(loaded[0]))
	assert.Equal(t, 7, reg.Len())
}

func TestLoad_UnknownBehavior(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"p.cue": `package parts
part: ghost: { behavior: "haunt", traits: ["placeable"] }
`})
	_, err := Load(dir, parts.Library())
	assert.Equal(t, ErrUnknownBehavior, codeOf(t, err))
}

func TestLoad_BadDefault(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"p.cue": `package parts
part: odd: {
	behavior: "life"
	traits: ["placeable"]
	properties: [{id: "ALIVE", kind: "bool", default: "maybe"}]
}
`})
	_, err := Load(dir, parts.Library())
	assert.Equal(t, ErrInvalidDefault, codeOf(t, err))
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), parts.Library())
	assert.Equal(t, ErrCodeNotFound, codeOf(t, err))
}

func TestLoad_NoFiles(t *testing.T) {
	_, err := Load(t.TempDir(), parts.Library())
	assert.Equal(t, ErrCodeNoFiles, codeOf(t, err))
}

func TestLoad_NoParts(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"p.cue": "package parts\n\nother: 1\n"})
	_, err := Load(dir, parts.Library())
	assert.Equal(t, ErrCodeGeneric, codeOf(t, err))
}

func TestFindCUEFiles(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"a.cue":     "package parts\n",
		"notes.txt": "skip",
	})
	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate_Clean(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"beacon.cue": lampCatalog})
	errs, count, err := Validate(dir, parts.Library())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, errs)
}

func TestValidate_CollectsEverything(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"bad.cue": `package parts

part: mess: {
	behavior: "haunt"
	traits: ["glowing"]
	properties: [
		{id: "WEIGHT", kind: "int"},
		{id: "LIT", kind: "bool"},
		{id: "LIT", kind: "bool"},
		{id: "SPEED", kind: "decimal"},
		{id: "COUNT", kind: "int", default: "many"},
		{id: "LABEL", kind: "text", access: "secret"},
	]
}

part: empty: {}
`})

	errs, count, err := Validate(dir, parts.Library())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var codes []string
	for _, e := range errs {
		codes = append(codes, e.Code)
		assert.NotEmpty(t, e.Error())
	}
	assert.ElementsMatch(t, []string{
		ErrUnknownBehavior,
		ErrUnknownTrait,
		ErrNotPlaceable,
		ErrUnknownProperty,
		ErrDuplicateProperty,
		ErrInvalidKind,
		ErrInvalidDefault,
		ErrInvalidAccess,
		ErrPartNoBehavior,
	}, codes)
}

func TestValidateSpec_WhitespaceBehavior(t *testing.T) {
	errs := ValidateSpec(&PartSpec{ID: "x", Behavior: "  ", Traits: []string{"cargo"}}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrPartNoBehavior, errs[0].Code)
	assert.Equal(t, "part.x.behavior", errs[0].Field)
}

func TestValidate_MissingDirectory(t *testing.T) {
	_, _, err := Validate(filepath.Join(t.TempDir(), "nope"), parts.Library())
	assert.Equal(t, ErrCodeNotFound, codeOf(t, err))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "part.a.behavior", Message: "required", Code: ErrPartNoBehavior}
	assert.Equal(t, "[E201] part.a.behavior: required", e.Error())
	e.Line = 4
	assert.Equal(t, "[E201] line 4: part.a.behavior: required", e.Error())
}
