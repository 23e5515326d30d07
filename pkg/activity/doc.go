// Package activity decides which user interactions count as editing and
// feeds them to the refresh coordinator.
//
// The browser reports interactions as Event values (event type plus a
// description of the target element). In ScopeEditors only the table's
// add-row and inline-edit controls pause refresh; in ScopeGlobal any form
// field, contenteditable region, or click on a CRUD-looking control does.
package activity
