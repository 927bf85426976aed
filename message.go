package mediadb

// Command verbs understood by the backend dispatcher.
const (
	CmdBrowseObject   = "browse-object"
	CmdBrowseChildren = "browse-children"
	CmdRescan         = "rescan"
	CmdAddDirectory   = "add-directory"
	CmdDelDirectory   = "del-directory"
	CmdSetDirectories = "set-directories"
)

// Event verbs emitted in response.
const (
	EvObject           = "object"
	EvObjectsAdded     = "objects-added"
	EvObjectsChanged   = "objects-changed"
	EvObjectsDeleted   = "objects-deleted"
	EvRescanStarted    = "rescan-started"
	EvRescanDone       = "rescan-done"
	// EvDirectoriesAdded carries the full scan directory list after an
	// add, not only the new entries.
	EvDirectoriesAdded = "directories-added"
	EvDirectoryDeleted = "directory-deleted"
	EvError            = "error"
)

// A Command is a request sent to the backend. CorrelationID is echoed
// on every event the command produces, so callers can match replies on
// a shared sink.
type Command struct {
	Verb          string
	CorrelationID string

	// Path addresses an object for the browse verbs ("/songs/artist/f/3").
	Path string

	// Start/Num window a browse-children request. Num <= 0 means all
	// remaining children. OneAnswer suppresses incremental flushes.
	Start     int
	Num       int
	OneAnswer bool

	// Directories carries the scan roots for the directory verbs.
	Directories []string
}

// An Event is one reply from the backend.
type Event struct {
	Verb          string
	CorrelationID string

	// Path is the browse path the event refers to, when any.
	Path string

	// Objects carries browse results and change notifications.
	Objects []Dict

	// Idx/Total window incremental browse-children replies: Objects
	// are the children at positions [Idx, Idx+len) of Total, and Last
	// marks the final batch.
	Idx   int
	Total int
	Last  bool

	// Syncing marks events emitted while a structural change (a
	// directory add, remove or rescan) is still running. Listeners
	// should treat results as transiently inconsistent until an event
	// without the flag follows.
	Syncing bool

	// Err is set on EvError events.
	Err error
}

// An EventSink receives backend events. Sinks must be safe for calls
// from the dispatcher goroutine only; the backend never calls a sink
// concurrently with itself.
type EventSink func(Event)
