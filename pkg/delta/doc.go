/*
Package delta implements the rich-text operation algebra used by the sync engine.

A Delta is an ordered list of operations, each of which retains, inserts or deletes a
run of the document. Documents themselves are Deltas made only of inserts, so the same
type describes both edits and contents.

# Algebra

  - Compose: a.Compose(b) is equivalent to applying a and then b.
  - Transform: a.Transform(b, priority) rewrites b so it applies after a. When both
    insert at the same index, priority=true orders a's content first.
  - Invert: b.Invert(base) returns the edit that undoes b applied to base.
  - TransformPosition: shifts a cursor index across an edit.

Lengths are counted in Unicode code points; an embed has length 1. Deltas are values:
no method mutates its receiver, and every derived Delta owns its own op slice.
*/
package delta
