// Package scratch tracks ownership of the intermediate files codec adapters
// produce. Ownership is explicit: one item per handle, released when the
// handle is superseded by a newer attempt or the item reaches a terminal
// state. The counters exist so tests can prove creations and releases pair
// up exactly.
package scratch
