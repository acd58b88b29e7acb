package tui

// LoadedMsg is delivered once the store has read its snapshot.
type LoadedMsg struct {
	Count int
}

// SnapshotSavedMsg reports a successful background write.
type SnapshotSavedMsg struct {
	Bytes int
}

// SnapshotFailedMsg reports a background write that did not reach storage.
type SnapshotFailedMsg struct {
	Error string
}

// LoadFailedMsg reports a snapshot that could not be read or parsed.
type LoadFailedMsg struct {
	Error       string
	Quarantined string
}

// busClosedMsg stops the event listener loop.
type busClosedMsg struct{}
