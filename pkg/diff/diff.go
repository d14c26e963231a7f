// Package diff computes structural diffs between JSON-like snapshots. It is
// shape-agnostic: any pair of values that marshal to JSON can be compared.
package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Op classifies one diff row.
type Op string

const (
	OpAdded   Op = "added"
	OpRemoved Op = "removed"
	OpChanged Op = "changed"
)

// Row is one leaf-level difference between two snapshots, keyed by dot path.
type Row struct {
	Path string `json:"path"`
	Op   Op     `json:"op"`
	From any    `json:"from,omitempty"`
	To   any    `json:"to,omitempty"`
}

// Snapshots flattens current and target into dot-path leaf maps and returns
// one row per differing path: present only in target is added, present only in
// current is removed, present in both with unequal normalized values is
// changed. Equal snapshots produce an empty row set.
//
// Objects recurse by sorted key; an empty object is itself a leaf; arrays are
// leaf values compared by normalized (key-sorted, recursive) JSON equality,
// not element-wise.
func Snapshots(current, target any) ([]Row, error) {
	currentFlat, err := Flatten(current)
	if err != nil {
		return nil, fmt.Errorf("flatten current snapshot: %w", err)
	}

	targetFlat, err := Flatten(target)
	if err != nil {
		return nil, fmt.Errorf("flatten target snapshot: %w", err)
	}

	paths := make([]string, 0, len(currentFlat)+len(targetFlat))
	for path := range currentFlat {
		paths = append(paths, path)
	}

	for path := range targetFlat {
		if _, ok := currentFlat[path]; !ok {
			paths = append(paths, path)
		}
	}

	sort.Strings(paths)

	rows := make([]Row, 0)

	for _, path := range paths {
		from, inCurrent := currentFlat[path]
		to, inTarget := targetFlat[path]

		switch {
		case !inCurrent:
			rows = append(rows, Row{Path: path, Op: OpAdded, To: to})
		case !inTarget:
			rows = append(rows, Row{Path: path, Op: OpRemoved, From: from})
		case !leafEqual(from, to):
			rows = append(rows, Row{Path: path, Op: OpChanged, From: from, To: to})
		}
	}

	return rows, nil
}

// Flatten normalizes a value through JSON and returns its dot-path → leaf map.
func Flatten(value any) (map[string]any, error) {
	normalized, err := normalize(value)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	flattenInto("", normalized, out)

	return out, nil
}

// GroupByTop buckets rows by their top-level path segment. Grouping is a
// presentation helper; it is not part of the diff contract.
func GroupByTop(rows []Row) map[string][]Row {
	out := make(map[string][]Row)

	for _, row := range rows {
		top, _, _ := strings.Cut(row.Path, ".")
		out[top] = append(out[top], row)
	}

	return out
}

// normalize round-trips a value through JSON so that structs, maps and
// primitives all land on the same representation before flattening.
func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var out any

	err = json.Unmarshal(data, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func flattenInto(prefix string, value any, out map[string]any) {
	object, ok := value.(map[string]any)
	if !ok || len(object) == 0 {
		out[prefix] = value

		return
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		flattenInto(path, object[key], out)
	}
}

// leafEqual compares two normalized leaves by canonical JSON. encoding/json
// emits map keys in sorted order, which gives the key-sorted normalization
// the comparison relies on.
func leafEqual(a, b any) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)

	if errA != nil || errB != nil {
		return false
	}

	return string(aJSON) == string(bJSON)
}
