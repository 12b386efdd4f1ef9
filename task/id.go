package task

import "github.com/rs/xid"

// ID uniquely identifies a Task, following the teacher's asynctask.ID
// pattern of wrapping xid.ID directly rather than introducing a parallel
// UUID scheme.
type ID xid.ID

// String renders the ID's canonical base32 form.
func (id ID) String() string {
	return xid.ID(id).String()
}

// NewID mints a fresh, sortable, globally-unique ID.
func NewID() ID {
	return ID(xid.New())
}
