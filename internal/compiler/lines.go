package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"
)

// pathElem is one step of a validation field path: a field name, or an
// index when name is empty.
type pathElem struct {
	name  string
	index int
}

var segmentRe = regexp.MustCompile(`^([^\[\]]*)((?:\[\d+\])*)$`)
var indexRe = regexp.MustCompile(`\[(\d+)\]`)

// parseFieldPath splits "statecharts[0].states[2].id" into elements.
func parseFieldPath(field string) []pathElem {
	var elems []pathElem
	for _, seg := range strings.Split(field, ".") {
		m := segmentRe.FindStringSubmatch(seg)
		if m == nil {
			return elems
		}
		if m[1] != "" {
			elems = append(elems, pathElem{name: m[1]})
		}
		for _, idx := range indexRe.FindAllStringSubmatch(m[2], -1) {
			n, _ := strconv.Atoi(idx[1])
			elems = append(elems, pathElem{index: n})
		}
	}
	return elems
}

// lineFinder maps a validation field path to a source line. Paths that
// run past the source resolve to their deepest existing prefix.
type lineFinder interface {
	Line(field string) int
}

type cueLines struct {
	v cue.Value
}

func (c cueLines) Line(field string) int {
	elems := parseFieldPath(field)
	for n := len(elems); n >= 0; n-- {
		sels := make([]cue.Selector, 0, n)
		for _, e := range elems[:n] {
			if e.name != "" {
				sels = append(sels, cue.Str(e.name))
			} else {
				sels = append(sels, cue.Index(e.index))
			}
		}
		if v := c.v.LookupPath(cue.MakePath(sels...)); v.Exists() {
			if pos := v.Pos(); pos.IsValid() {
				return pos.Line()
			}
		}
	}
	return 0
}

type yamlLines struct {
	doc *yaml.Node
}

func (y yamlLines) Line(field string) int {
	if y.doc == nil || len(y.doc.Content) == 0 {
		return 0
	}
	node := y.doc.Content[0]
	line := node.Line
	for _, e := range parseFieldPath(field) {
		next, at := child(node, e)
		if next == nil {
			break
		}
		node, line = next, at
	}
	return line
}

// child steps into node by e and returns the child and the line that
// names it: the key line for mapping entries.
func child(node *yaml.Node, e pathElem) (*yaml.Node, int) {
	switch {
	case e.name != "" && node.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == e.name {
				return node.Content[i+1], node.Content[i].Line
			}
		}
	case e.name == "" && node.Kind == yaml.SequenceNode:
		if e.index < len(node.Content) {
			n := node.Content[e.index]
			return n, n.Line
		}
	}
	return nil, 0
}
