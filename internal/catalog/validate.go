package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/cellsim/internal/fault"
	"github.com/roach88/cellsim/internal/part"
	"github.com/roach88/cellsim/internal/parts"
	"github.com/roach88/cellsim/internal/value"
)

// Validation error codes (E200-E299)
const (
	ErrPartNoBehavior    = "E201" // behavior is required
	ErrUnknownBehavior   = "E202" // behavior not in the library
	ErrUnknownTrait      = "E203" // trait name not recognized
	ErrNotPlaceable      = "E204" // neither placeable nor cargo
	ErrUnknownProperty   = "E205" // property id not recognized
	ErrInvalidKind       = "E206" // value kind not recognized
	ErrInvalidDefault    = "E207" // default does not convert to the kind
	ErrInvalidAccess     = "E208" // access level not recognized
	ErrDuplicateProperty = "E209" // property declared twice
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks every part declared in dir against lib without building
// anything. It returns all problems found (does not fail fast). The error
// return is reserved for catalogs that cannot be read at all.
func Validate(dir string, lib map[string]parts.Behavior) ([]ValidationError, int, error) {
	v, err := loadValue(dir)
	if err != nil {
		return nil, 0, err
	}

	partsVal := v.LookupPath(cue.ParsePath("part"))
	if !partsVal.Exists() {
		return nil, 0, &LoadError{Code: ErrCodeGeneric, Message: "no parts found in catalog"}
	}
	iter, err := partsVal.Fields()
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating parts: %v", err)}
	}

	var (
		errs  []ValidationError
		count int
	)
	for iter.Next() {
		count++
		spec, err := CompilePart(iter.Value())
		if err != nil {
			le := convertCompileError(err, "part."+iter.Label())
			errs = append(errs, ValidationError{
				Field:   "part." + iter.Label(),
				Message: le.Message,
				Code:    le.Code,
				Line:    le.Pos.Line(),
			})
			continue
		}
		errs = append(errs, ValidateSpec(spec, lib)...)
	}
	return errs, count, nil
}

// ValidateSpec checks one compiled spec.
func ValidateSpec(spec *PartSpec, lib map[string]parts.Behavior) []ValidationError {
	var errs []ValidationError
	prefix := "part." + spec.ID
	line := spec.Pos.Line()

	// E201/E202: behavior
	switch {
	case strings.TrimSpace(spec.Behavior) == "":
		errs = append(errs, ValidationError{
			Field:   prefix + ".behavior",
			Message: "behavior is required and must be non-empty",
			Code:    ErrPartNoBehavior,
			Line:    line,
		})
	case lib != nil:
		if _, ok := lib[spec.Behavior]; !ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".behavior",
				Message: fmt.Sprintf("unknown behavior %q, known: %s", spec.Behavior, strings.Join(behaviorNames(lib), ", ")),
				Code:    ErrUnknownBehavior,
				Line:    line,
			})
		}
	}

	// E203/E204: traits
	var traits part.Traits
	for i, name := range spec.Traits {
		t, err := part.ParseTrait(name)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.traits[%d]", prefix, i),
				Message: err.Error(),
				Code:    ErrUnknownTrait,
				Line:    line,
			})
			continue
		}
		traits |= t
	}
	if !traits.Has(part.TraitPlaceable) && !traits.Has(part.TraitCargo) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".traits",
			Message: "part must be placeable or cargo",
			Code:    ErrNotPlaceable,
			Line:    line,
		})
	}

	seen := make(map[value.PropertyID]bool)
	for i, ps := range spec.Properties {
		field := fmt.Sprintf("%s.properties[%d]", prefix, i)
		pline := ps.Pos.Line()

		// E205/E209: id
		id, err := value.ParsePropertyID(ps.ID)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("unknown property %q", ps.ID),
				Code:    ErrUnknownProperty,
				Line:    pline,
			})
		} else if seen[id] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate property %s", id),
				Code:    ErrDuplicateProperty,
				Line:    pline,
			})
		}
		seen[id] = true

		// E206/E207: kind and default
		kind, err := value.ParseKind(ps.Kind)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid kind %q for property %s", ps.Kind, ps.ID),
				Code:    ErrInvalidKind,
				Line:    pline,
			})
		} else if ps.Default != nil {
			if _, err := value.Convert(kind, ps.Default); err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".default",
					Message: fmt.Sprintf("default %v is not a %s", ps.Default, kind),
					Code:    ErrInvalidDefault,
					Line:    pline,
				})
			}
		}

		// E208: access
		if ps.Access != "" {
			if _, err := value.ParseAccess(ps.Access); err != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".access",
					Message: err.Error(),
					Code:    ErrInvalidAccess,
					Line:    pline,
				})
			}
		}
	}

	return errs
}

func behaviorNames(lib map[string]parts.Behavior) []string {
	names := make([]string, 0, len(lib))
	for name := range lib {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MapFieldToErrorCode maps a compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "behavior":
		return ErrPartNoBehavior
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".id"):
		return ErrUnknownProperty
	case strings.HasSuffix(field, ".kind"):
		return ErrInvalidKind
	case field == "default":
		return ErrInvalidDefault
	default:
		return ErrCodeGeneric
	}
}

// codeFor maps a build failure to an error code.
func codeFor(err error) string {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		return ErrCodeGeneric
	}
	switch fe.Code {
	case fault.CodeNoDelegate:
		return ErrUnknownBehavior
	case fault.CodeUnknownProperty:
		return ErrUnknownProperty
	case fault.CodeTypeMismatch:
		return ErrInvalidDefault
	case fault.CodeDuplicateProperty:
		return ErrDuplicateProperty
	default:
		return ErrCodeGeneric
	}
}
