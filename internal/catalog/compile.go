package catalog

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// PartSpec is a part schema as declared in a catalog, before it is bound to
// a behavior. Values are kept in their declared form so Validate can report
// every problem at once.
type PartSpec struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Behavior    string         `json:"behavior" yaml:"behavior"`
	Traits      []string       `json:"traits" yaml:"traits"`
	Properties  []PropertySpec `json:"properties" yaml:"properties"`

	Pos token.Pos `json:"-" yaml:"-"`
}

// PropertySpec is one declared property. Default holds the CUE value
// converted to a Go scalar (bool, int64, float64 or string), or nil when
// omitted.
type PropertySpec struct {
	ID         string `json:"id" yaml:"id"`
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind       string `json:"kind" yaml:"kind"`
	Default    any    `json:"default,omitempty" yaml:"default,omitempty"`
	Access     string `json:"access,omitempty" yaml:"access,omitempty"`
	Persistent bool   `json:"persistent,omitempty" yaml:"persistent,omitempty"`

	Pos token.Pos `json:"-" yaml:"-"`
}

// CompilePart parses a CUE value into a PartSpec.
//
// The CUE value should be the part struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`part: lamp: { behavior: "lamp", ... }`)
//	spec, err := CompilePart(v.LookupPath(cue.ParsePath("part.lamp")))
func CompilePart(v cue.Value) (*PartSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &PartSpec{Pos: v.Pos()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if spec.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if spec.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}

	behaviorVal := v.LookupPath(cue.ParsePath("behavior"))
	if !behaviorVal.Exists() {
		return nil, &CompileError{
			Field:   "behavior",
			Message: "behavior is required",
			Pos:     v.Pos(),
		}
	}
	if spec.Behavior, err = behaviorVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	if spec.Traits, err = parseTraits(v); err != nil {
		return nil, err
	}
	if spec.Properties, err = parseProperties(v); err != nil {
		return nil, err
	}
	return spec, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// parseTraits reads the traits list. Traits are optional.
func parseTraits(v cue.Value) ([]string, error) {
	traitsVal := v.LookupPath(cue.ParsePath("traits"))
	if !traitsVal.Exists() {
		return nil, nil
	}
	iter, err := traitsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var traits []string
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		traits = append(traits, name)
	}
	return traits, nil
}

// parseProperties reads the properties list. Properties are optional.
func parseProperties(v cue.Value) ([]PropertySpec, error) {
	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, nil
	}
	iter, err := propsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []PropertySpec
	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		prop := PropertySpec{Pos: pv.Pos()}

		idVal := pv.LookupPath(cue.ParsePath("id"))
		if !idVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("properties[%d].id", i),
				Message: "property id is required",
				Pos:     pv.Pos(),
			}
		}
		if prop.ID, err = idVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		kindVal := pv.LookupPath(cue.ParsePath("kind"))
		if !kindVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("properties[%d].kind", i),
				Message: fmt.Sprintf("property %s needs a kind", prop.ID),
				Pos:     pv.Pos(),
			}
		}
		if prop.Kind, err = kindVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		if prop.Key, err = optionalString(pv, "key"); err != nil {
			return nil, err
		}
		if prop.Name, err = optionalString(pv, "name"); err != nil {
			return nil, err
		}
		if prop.Access, err = optionalString(pv, "access"); err != nil {
			return nil, err
		}

		if persistVal := pv.LookupPath(cue.ParsePath("persistent")); persistVal.Exists() {
			if prop.Persistent, err = persistVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}

		if defVal := pv.LookupPath(cue.ParsePath("default")); defVal.Exists() {
			if prop.Default, err = extractScalar(defVal); err != nil {
				return nil, err
			}
		}

		props = append(props, prop)
	}
	return props, nil
}

// extractScalar converts a concrete CUE scalar to bool, int64, float64 or
// string.
func extractScalar(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	default:
		return nil, &CompileError{
			Field:   "default",
			Message: fmt.Sprintf("unsupported default kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
