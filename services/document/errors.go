package document

import "errors"

// ErrNoSections indicates the document has no recognizable section
// structure. Nothing downstream can proceed without sections, so callers
// must treat this as fatal to the run.
var ErrNoSections = errors.New("document has no identifiable section boundaries")
