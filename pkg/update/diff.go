// Package update simulates knowledge-base edits: it selects a mutable fact
// in a focal node's neighborhood, applies it to a private clone of the
// graph, re-renders, and computes the structural diff between the old and
// new document sets. The diff is symmetric-complete: applying it to the old
// set reconstructs the new set exactly, and applying its inverse to the new
// set reconstructs the old.
package update

import (
	"sort"

	"github.com/soundprediction/synthmem/pkg/types"
)

// DiffSets computes the structural delta between two document sets. Only
// documents whose content differs appear in the result; an unchanged
// document contributes nothing (locality).
func DiffSets(oldSet, newSet *types.DocumentSet) types.SetDiff {
	newByKey := make(map[string]*types.Document, len(newSet.Documents))
	newPos := make(map[string]int, len(newSet.Documents))
	for i, d := range newSet.Documents {
		newByKey[d.Key] = d
		newPos[d.Key] = i
	}
	oldKeys := make(map[string]struct{}, len(oldSet.Documents))

	var diff types.SetDiff
	for i, oldDoc := range oldSet.Documents {
		oldKeys[oldDoc.Key] = struct{}{}
		newDoc, ok := newByKey[oldDoc.Key]
		if !ok {
			diff.Documents = append(diff.Documents, types.DocumentDiff{
				Key:      oldDoc.Key,
				Deleted:  true,
				Title:    oldDoc.Title,
				NodeID:   oldDoc.NodeID,
				Position: i,
				Removed:  allFields(oldDoc),
			})
			continue
		}
		if d := diffDocuments(oldDoc, newDoc); !d.Empty() {
			diff.Documents = append(diff.Documents, d)
		}
	}
	for i, newDoc := range newSet.Documents {
		if _, existed := oldKeys[newDoc.Key]; existed {
			continue
		}
		diff.Documents = append(diff.Documents, types.DocumentDiff{
			Key:      newDoc.Key,
			Created:  true,
			Title:    newDoc.Title,
			NodeID:   newDoc.NodeID,
			Position: i,
			Added:    allFields(newDoc),
		})
	}
	return diff
}

func allFields(doc *types.Document) []types.FieldEntry {
	var entries []types.FieldEntry
	for bi, b := range doc.Blocks {
		for fi, f := range b.Fields {
			entries = append(entries, types.FieldEntry{
				Heading:    b.Heading,
				BlockIndex: bi,
				Index:      fi,
				Field:      f,
			})
		}
	}
	return entries
}

// diffDocuments compares two versions of one document. Fields are matched
// within a heading by label and by position among same-label fields, so two
// relationship fields sharing a label pair up in order.
func diffDocuments(oldDoc, newDoc *types.Document) types.DocumentDiff {
	diff := types.DocumentDiff{Key: oldDoc.Key}

	oldBlocks := blockIndex(oldDoc)
	newBlocks := blockIndex(newDoc)

	headings := make([]string, 0, len(oldDoc.Blocks)+len(newDoc.Blocks))
	seen := make(map[string]struct{})
	for _, b := range oldDoc.Blocks {
		headings = append(headings, b.Heading)
		seen[b.Heading] = struct{}{}
	}
	for _, b := range newDoc.Blocks {
		if _, ok := seen[b.Heading]; !ok {
			headings = append(headings, b.Heading)
		}
	}

	for _, heading := range headings {
		var oldFields, newFields []types.Field
		oldBI, newBI := -1, -1
		if bi, ok := oldBlocks[heading]; ok {
			oldBI = bi
			oldFields = oldDoc.Blocks[bi].Fields
		}
		if bi, ok := newBlocks[heading]; ok {
			newBI = bi
			newFields = newDoc.Blocks[bi].Fields
		}

		matched := pairFields(oldFields, newFields)
		for _, m := range matched {
			switch {
			case m.oldIdx >= 0 && m.newIdx >= 0:
				if !oldFields[m.oldIdx].Equal(newFields[m.newIdx]) {
					diff.Changed = append(diff.Changed, types.FieldDelta{
						Heading: heading,
						Label:   oldFields[m.oldIdx].Label,
						Index:   m.oldIdx,
						Old:     oldFields[m.oldIdx],
						New:     newFields[m.newIdx],
					})
				}
			case m.oldIdx >= 0:
				diff.Removed = append(diff.Removed, types.FieldEntry{
					Heading:    heading,
					BlockIndex: oldBI,
					Index:      m.oldIdx,
					Field:      oldFields[m.oldIdx],
				})
			default:
				bi := newBI
				diff.Added = append(diff.Added, types.FieldEntry{
					Heading:    heading,
					BlockIndex: bi,
					Index:      m.newIdx,
					Field:      newFields[m.newIdx],
				})
			}
		}
	}
	return diff
}

type fieldMatch struct {
	oldIdx int
	newIdx int
}

// pairFields aligns two field lists by (label, occurrence) and returns one
// match per field: paired, old-only (newIdx -1), or new-only (oldIdx -1).
func pairFields(oldFields, newFields []types.Field) []fieldMatch {
	newByLabel := make(map[string][]int)
	for i, f := range newFields {
		newByLabel[f.Label] = append(newByLabel[f.Label], i)
	}

	var matches []fieldMatch
	usedNew := make(map[int]struct{})
	occurrence := make(map[string]int)
	for i, f := range oldFields {
		candidates := newByLabel[f.Label]
		k := occurrence[f.Label]
		occurrence[f.Label]++
		if k < len(candidates) {
			matches = append(matches, fieldMatch{oldIdx: i, newIdx: candidates[k]})
			usedNew[candidates[k]] = struct{}{}
		} else {
			matches = append(matches, fieldMatch{oldIdx: i, newIdx: -1})
		}
	}
	for i := range newFields {
		if _, ok := usedNew[i]; !ok {
			matches = append(matches, fieldMatch{oldIdx: -1, newIdx: i})
		}
	}
	return matches
}

func blockIndex(doc *types.Document) map[string]int {
	idx := make(map[string]int, len(doc.Blocks))
	for i, b := range doc.Blocks {
		idx[b.Heading] = i
	}
	return idx
}

// Apply produces the document set that results from applying the diff to
// the given set. The input set is not modified.
func Apply(set *types.DocumentSet, diff types.SetDiff) *types.DocumentSet {
	out := set.Clone()

	for _, d := range diff.Documents {
		switch {
		case d.Deleted:
			out.Documents = removeDocument(out.Documents, d.Key)
		case d.Created:
			doc := buildDocument(d)
			out.Documents = insertDocument(out.Documents, doc, d.Position)
		default:
			if doc, ok := out.Get(d.Key); ok {
				applyToDocument(doc, d)
			}
		}
	}
	return out
}

// Invert returns the diff that undoes this one.
func Invert(diff types.SetDiff) types.SetDiff {
	out := types.SetDiff{Documents: make([]types.DocumentDiff, len(diff.Documents))}
	for i, d := range diff.Documents {
		inv := types.DocumentDiff{
			Key:      d.Key,
			Created:  d.Deleted,
			Deleted:  d.Created,
			Title:    d.Title,
			NodeID:   d.NodeID,
			Position: d.Position,
			Added:    d.Removed,
			Removed:  d.Added,
		}
		for _, c := range d.Changed {
			inv.Changed = append(inv.Changed, types.FieldDelta{
				Heading: c.Heading,
				Label:   c.Label,
				Index:   c.Index,
				Old:     c.New,
				New:     c.Old,
			})
		}
		out.Documents[i] = inv
	}
	return out
}

// buildDocument reconstructs a whole document from a Created diff.
func buildDocument(d types.DocumentDiff) *types.Document {
	doc := &types.Document{Key: d.Key, Title: d.Title, NodeID: d.NodeID}
	entries := make([]types.FieldEntry, len(d.Added))
	copy(entries, d.Added)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].BlockIndex != entries[j].BlockIndex {
			return entries[i].BlockIndex < entries[j].BlockIndex
		}
		return entries[i].Index < entries[j].Index
	})
	for _, e := range entries {
		for len(doc.Blocks) <= e.BlockIndex {
			doc.Blocks = append(doc.Blocks, types.Block{})
		}
		doc.Blocks[e.BlockIndex].Heading = e.Heading
		doc.Blocks[e.BlockIndex].Fields = append(doc.Blocks[e.BlockIndex].Fields, e.Field)
	}
	return doc
}

// applyToDocument applies changed, removed, and added field records to one
// document in place. Changes touch fields where they stand; removals run in
// descending index order against the old positions; additions insert at
// their new positions in ascending order. Blocks emptied by removals are
// dropped, matching renderer output, and blocks needed by additions are
// inserted at their recorded positions.
func applyToDocument(doc *types.Document, d types.DocumentDiff) {
	for _, c := range d.Changed {
		if bi, ok := blockIndex(doc)[c.Heading]; ok {
			fields := doc.Blocks[bi].Fields
			if c.Index < len(fields) {
				fields[c.Index] = c.New
			}
		}
	}

	removed := make([]types.FieldEntry, len(d.Removed))
	copy(removed, d.Removed)
	sort.SliceStable(removed, func(i, j int) bool { return removed[i].Index > removed[j].Index })
	for _, e := range removed {
		if bi, ok := blockIndex(doc)[e.Heading]; ok {
			fields := doc.Blocks[bi].Fields
			if e.Index < len(fields) {
				doc.Blocks[bi].Fields = append(fields[:e.Index:e.Index], fields[e.Index+1:]...)
			}
		}
	}

	added := make([]types.FieldEntry, len(d.Added))
	copy(added, d.Added)
	sort.SliceStable(added, func(i, j int) bool {
		if added[i].BlockIndex != added[j].BlockIndex {
			return added[i].BlockIndex < added[j].BlockIndex
		}
		return added[i].Index < added[j].Index
	})
	for _, e := range added {
		bi, ok := blockIndex(doc)[e.Heading]
		if !ok {
			bi = e.BlockIndex
			if bi > len(doc.Blocks) {
				bi = len(doc.Blocks)
			}
			doc.Blocks = append(doc.Blocks, types.Block{})
			copy(doc.Blocks[bi+1:], doc.Blocks[bi:])
			doc.Blocks[bi] = types.Block{Heading: e.Heading}
		}
		fields := doc.Blocks[bi].Fields
		idx := e.Index
		if idx > len(fields) {
			idx = len(fields)
		}
		fields = append(fields, types.Field{})
		copy(fields[idx+1:], fields[idx:])
		fields[idx] = e.Field
		doc.Blocks[bi].Fields = fields
	}

	var kept []types.Block
	for _, b := range doc.Blocks {
		if len(b.Fields) > 0 {
			kept = append(kept, b)
		}
	}
	doc.Blocks = kept
}

func removeDocument(docs []*types.Document, key string) []*types.Document {
	for i, d := range docs {
		if d.Key == key {
			return append(docs[:i:i], docs[i+1:]...)
		}
	}
	return docs
}

func insertDocument(docs []*types.Document, doc *types.Document, pos int) []*types.Document {
	if pos > len(docs) {
		pos = len(docs)
	}
	docs = append(docs, nil)
	copy(docs[pos+1:], docs[pos:])
	docs[pos] = doc
	return docs
}
