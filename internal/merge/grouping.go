package merge

// sameEntry reports whether two records are lines of one source entry.
func sameEntry(a, b LineRecord) bool {
	return a.Source == b.Source && a.OriginalEntry == b.OriginalEntry
}

// mergedEntryIndex numbers rec as if it sat at pos, judged against the
// record right before pos.
func mergedEntryIndex(records []LineRecord, pos int, rec LineRecord) int {
	if pos <= 0 {
		return 0
	}
	prev := records[pos-1]
	if sameEntry(prev, rec) {
		return prev.MergedEntry
	}
	return prev.MergedEntry + 1
}

// renumberEntries recomputes merged entry indices from pos to the end.
func renumberEntries(records []LineRecord, pos int) {
	for i := max(pos, 0); i < len(records); i++ {
		records[i].MergedEntry = mergedEntryIndex(records, i, records[i])
	}
}
