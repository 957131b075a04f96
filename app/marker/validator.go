package marker

import (
	"fmt"
	"sort"
	"strings"
)

var (
	requiredFields = []string{"id", "frame", "examples"}
	frameFields    = []string{"signal", "concept", "pragmatics", "narrative"}
	xorFields      = []string{"pattern", "composed_of", "detect_class"}

	// recommendedMetadataFields is advisory: absence is a warning.
	recommendedMetadataFields = []string{"created", "author", "version", "tags"}

	// knownFields is every field the schema recognizes. Anything else is
	// preserved untouched and only reported as a warning.
	knownFields = map[string]struct{}{
		"id": {}, "frame": {}, "examples": {},
		"pattern": {}, "composed_of": {}, "detect_class": {},
		"metadata": {}, "category": {}, "semantic_id": {}, "original_description": {},
	}
)

// validationStep runs one rule group against the document, appending errors
// and warnings to the result. It returns false to stop validation: a step
// stops on its first hard error when later groups would only produce noise
// (e.g. frame checks after the frame turned out not to be a mapping), and
// continues otherwise. Warnings never stop.
type validationStep func(doc map[string]any, res *ValidationResult) bool

// Validator checks a marker document against the Lean Deep 3.11 structural
// rules. It operates on the document form rather than the typed Marker so
// that hand-edited markers with type defects are still checkable. Validation
// is a pure function of the document.
type Validator struct {
	minExamples int
	steps       []validationStep
}

func NewValidator(minExamples int) *Validator {
	v := &Validator{minExamples: minExamples}
	v.steps = []validationStep{
		v.checkRequiredFields,
		v.checkID,
		v.checkFrame,
		v.checkExamples,
		v.checkXOR,
		v.checkPattern,
		v.checkComposedOf,
		v.checkMetadata,
		v.checkUnknownFields,
	}
	return v
}

// Run validates a complete marker document. Steps run in order until one
// reports a stopping hard error; warnings accumulate across all steps that
// ran. The document is valid iff no errors were recorded.
func (v *Validator) Run(doc map[string]any) ValidationResult {
	var res ValidationResult
	for _, step := range v.steps {
		if !step(doc, &res) {
			break
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

func (v *Validator) checkRequiredFields(doc map[string]any, res *ValidationResult) bool {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := doc[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("Missing required fields: %s", braced(missing)))
		return false
	}
	return true
}

func (v *Validator) checkID(doc map[string]any, res *ValidationResult) bool {
	id, ok := doc["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		res.Errors = append(res.Errors, "id must be a non-empty string")
	}
	return true
}

func (v *Validator) checkFrame(doc map[string]any, res *ValidationResult) bool {
	frame, ok := doc["frame"].(map[string]any)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("Frame must be a mapping, got %s", typeName(doc["frame"])))
		return false
	}

	var missing []string
	for _, field := range frameFields {
		if _, ok := frame[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("Frame missing required fields: %s", braced(missing)))
		return false
	}

	for _, field := range frameFields {
		value, ok := frame[field].(string)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Frame field '%s' must be a string, got %s", field, typeName(frame[field])))
			return false
		}
		if strings.TrimSpace(value) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Frame field '%s' is empty", field))
		}
	}

	return true
}

func (v *Validator) checkExamples(doc map[string]any, res *ValidationResult) bool {
	examples, ok := doc["examples"].([]any)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("Examples must be a list, got %s", typeName(doc["examples"])))
		return false
	}

	if len(examples) < v.minExamples {
		res.Errors = append(res.Errors, fmt.Sprintf("Insufficient examples: found %d, minimum %d required", len(examples), v.minExamples))
		return false
	}

	seen := make(map[string]struct{}, len(examples))
	for i, entry := range examples {
		example, ok := entry.(string)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Example %d must be a string, got %s", i, typeName(entry)))
			return false
		}
		if _, dup := seen[example]; dup {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Duplicate example found: '%s...'", truncate(example, 50)))
		}
		seen[example] = struct{}{}
	}

	return true
}

func (v *Validator) checkXOR(doc map[string]any, res *ValidationResult) bool {
	var present []string
	for _, field := range xorFields {
		if _, ok := doc[field]; ok {
			present = append(present, field)
		}
	}
	if len(present) != 1 {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"XOR constraint violated: exactly one of %s must be present, found %s",
			braced(xorFields), braced(present)))
		return false
	}
	return true
}

func (v *Validator) checkPattern(doc map[string]any, res *ValidationResult) bool {
	raw, ok := doc["pattern"]
	if !ok {
		return true
	}
	pattern, ok := raw.(string)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("Pattern must be a string, got %s", typeName(raw)))
		return true
	}
	if strings.TrimSpace(pattern) == "" {
		res.Warnings = append(res.Warnings, "Pattern is empty")
	}
	return true
}

func (v *Validator) checkComposedOf(doc map[string]any, res *ValidationResult) bool {
	raw, ok := doc["composed_of"]
	if !ok {
		return true
	}
	components, ok := raw.([]any)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("composed_of must be a list, got %s", typeName(raw)))
		return true
	}
	for i, entry := range components {
		component, ok := entry.(map[string]any)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("composed_of[%d] must be a mapping", i))
			return true
		}
		if _, hasType := component["type"]; !hasType {
			res.Errors = append(res.Errors, fmt.Sprintf("composed_of[%d] must have 'type' and 'marker_ids' fields", i))
			return true
		}
		if _, hasIDs := component["marker_ids"]; !hasIDs {
			res.Errors = append(res.Errors, fmt.Sprintf("composed_of[%d] must have 'type' and 'marker_ids' fields", i))
			return true
		}
	}
	return true
}

func (v *Validator) checkMetadata(doc map[string]any, res *ValidationResult) bool {
	raw, ok := doc["metadata"]
	if !ok || raw == nil {
		return true
	}
	metadata, ok := raw.(map[string]any)
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("Metadata must be a mapping, got %s", typeName(raw)))
		return true
	}

	var missing []string
	for _, field := range recommendedMetadataFields {
		if _, ok := metadata[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Metadata missing recommended fields: %s", braced(missing)))
	}

	if rawTags, ok := metadata["tags"]; ok {
		tags, ok := rawTags.([]any)
		if !ok {
			res.Errors = append(res.Errors, "Metadata 'tags' must be a list")
			return true
		}
		seen := make(map[string]struct{}, len(tags))
		for _, t := range tags {
			key := fmt.Sprintf("%v", t)
			if _, dup := seen[key]; dup {
				res.Warnings = append(res.Warnings, "Duplicate tags found in metadata")
				break
			}
			seen[key] = struct{}{}
		}
	}

	return true
}

func (v *Validator) checkUnknownFields(doc map[string]any, res *ValidationResult) bool {
	var unknown []string
	for key := range doc {
		if _, ok := knownFields[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		res.Warnings = append(res.Warnings, fmt.Sprintf("Unknown fields will be preserved: %s", braced(unknown)))
	}
	return true
}

// braced renders a field list as "{a, b, c}".
func braced(fields []string) string {
	return "{" + strings.Join(fields, ", ") + "}"
}

// truncate shortens to n runes; byte slicing would split multi-byte
// characters, which the corpus is full of.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// typeName describes a decoded YAML value in schema terms.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
