// annotations.go defines the @oxy: comment annotations understood by the WGSL parser.
// An annotation sits alone on a line comment directly above the declaration it modifies
// and adjusts the layout metadata WGSL alone cannot express.
package shader

import (
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInstance marks the vertex input struct below it as a per-instance buffer.
	// Its vertex buffer layout uses wgpu.VertexStepModeInstance.
	//
	// Syntax: //@oxy:instance
	AnnotationTypeInstance AnnotationType = "instance"

	// AnnotationTypeUnfilterable marks the f32 texture binding below it as unfilterable. Float32
	// textures such as the skinning matrix texture can only be bound this way and read with
	// textureLoad.
	//
	// Syntax: //@oxy:unfilterable
	AnnotationTypeUnfilterable AnnotationType = "unfilterable"
)

// Annotation is one parsed annotation and the source line it applies to.
type Annotation struct {
	// Type identifies the annotation.
	Type AnnotationType

	// Target is the trimmed source line the annotation modifies.
	Target string
}

// parseAnnotations collects every annotation in source paired with the next non-blank,
// non-comment line. Unknown annotation names are ignored.
//
// Parameters:
//   - source: the raw WGSL source
//
// Returns:
//   - []Annotation: the annotations in source order
func parseAnnotations(source string) []Annotation {
	var out []Annotation
	var pending []AnnotationType

	for line := range strings.SplitSeq(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(trimmed, "//"); ok {
			rest = strings.TrimSpace(rest)
			if name, ok := strings.CutPrefix(rest, annotationPrefix); ok {
				switch t := AnnotationType(strings.TrimSpace(name)); t {
				case AnnotationTypeInstance, AnnotationTypeUnfilterable:
					pending = append(pending, t)
				}
			}
			continue
		}
		for _, t := range pending {
			out = append(out, Annotation{Type: t, Target: trimmed})
		}
		pending = pending[:0]
	}
	return out
}

// instanceStructs returns the names of the structs annotated as per-instance inputs.
func instanceStructs(annotations []Annotation) map[string]bool {
	out := make(map[string]bool)
	for _, a := range annotations {
		if a.Type != AnnotationTypeInstance {
			continue
		}
		if m := structHeaderRegex.FindStringSubmatch(a.Target); m != nil {
			out[m[1]] = true
		}
	}
	return out
}

// unfilterableBindings returns the group and binding pairs annotated as unfilterable.
func unfilterableBindings(annotations []Annotation) map[[2]int]bool {
	out := make(map[[2]int]bool)
	for _, a := range annotations {
		if a.Type != AnnotationTypeUnfilterable {
			continue
		}
		if group, binding, ok := parseBindingHeader(a.Target); ok {
			out[[2]int{group, binding}] = true
		}
	}
	return out
}
