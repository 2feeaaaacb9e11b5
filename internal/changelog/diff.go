// Package changelog produces the human-readable audit trail shown in a
// document's history: it compares two document snapshots and emits one entry
// per changed leaf among a fixed set of tracked properties.
package changelog

import (
	"reflect"
	"sort"
	"strconv"
	"time"
)

// NotPresent is the placeholder recorded as the previous value when a whole
// array element appears where nothing existed before.
const NotPresent = "Not present"

// Details carries the before/after pair of a single change.
type Details struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Entry is one line of the audit trail.
type Entry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   Details   `json:"details"`
}

// trackedPaths is the fixed list of snapshot properties the differ follows.
// A path that matches nothing in either snapshot simply produces no entries.
var trackedPaths = []string{
	"data.quoteHeadDetails",
	"data.selectedClient",
	"data.addedProducts",
	"clientSignature",
	"ownerSignature",
	"status",
	"followUpSent",
	"readonly",
	"note",
	"dateOfSignature",
	"uploadedFiles",
	"discount",
}

// Generate compares two JSON-decoded document snapshots and returns the
// ordered change list, each entry stamped with now. Equal snapshots yield an
// empty (non-nil) slice.
func Generate(oldDoc, newDoc map[string]any, now time.Time) []Entry {
	d := &differ{newDoc: newDoc, now: now, entries: []Entry{}}
	for _, path := range trackedPaths {
		d.diff(path, lookup(oldDoc, path), lookup(newDoc, path))
	}
	return d.entries
}

type differ struct {
	newDoc  map[string]any
	now     time.Time
	entries []Entry
}

func (d *differ) diff(path string, oldV, newV any) {
	if newArr, ok := newV.([]any); ok {
		oldArr, oldIsArr := oldV.([]any)
		if !oldIsArr {
			// A fresh array where none existed: one entry per element.
			for i, elem := range newArr {
				d.emit(path+"."+strconv.Itoa(i), NotPresent, elem)
			}
			return
		}
		n := len(newArr)
		if len(oldArr) > n {
			n = len(oldArr)
		}
		for i := 0; i < n; i++ {
			d.diff(path+"."+strconv.Itoa(i), index(oldArr, i), index(newArr, i))
		}
		return
	}

	oldMap, oldIsMap := oldV.(map[string]any)
	newMap, newIsMap := newV.(map[string]any)
	if oldIsMap && newIsMap {
		for _, k := range unionKeys(oldMap, newMap) {
			d.diff(path+"."+k, oldMap[k], newMap[k])
		}
		return
	}

	// Leaf. Two falsy values of any sub-type (nil, missing, empty string)
	// count as no change to avoid spurious diffs.
	if falsy(oldV) && falsy(newV) {
		return
	}
	if reflect.DeepEqual(oldV, newV) {
		return
	}
	d.emit(path, oldV, newV)
}

func (d *differ) emit(path string, oldV, newV any) {
	d.entries = append(d.entries, Entry{
		Action:    resolveLabel(path, d.newDoc),
		Timestamp: d.now,
		Details:   Details{From: oldV, To: newV},
	})
}

func falsy(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func index(arr []any, i int) any {
	if i < len(arr) {
		return arr[i]
	}
	return nil
}

// unionKeys returns new-snapshot keys first (in sorted order), then keys only
// present in the old snapshot, so additions read before removals.
func unionKeys(oldMap, newMap map[string]any) []string {
	keys := sortedKeys(newMap)
	for _, k := range sortedKeys(oldMap) {
		if _, ok := newMap[k]; !ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup walks a dotted path through nested maps and array indices,
// returning nil when any segment is missing.
func lookup(doc any, path string) any {
	cur := doc
	for _, seg := range splitPath(path) {
		switch v := cur.(type) {
		case map[string]any:
			cur = v[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil
			}
			cur = v[i]
		default:
			return nil
		}
	}
	return cur
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	return append(segs, path[start:])
}
