// Package coordinator provides the RefreshCoordinator: a single pause window
// shared by every registered refresher kind.
//
// Typical usage:
//
//	c := coordinator.New(coordinator.WithMaxPause(3 * time.Minute))
//	c.Register(core.KindTable, tableFetcher, refresher.WithInterval(30*time.Second))
//	c.Register(core.KindNotification, bellFetcher, refresher.WithInterval(15*time.Second))
//	go c.Start(ctx)
//
//	// on focus/input in an editable control
//	c.NoteActivity()
//	// after a successful create/update/delete
//	c.ResumeNow()
//
// Editing anywhere suppresses every kind at once: a notification refresh can
// re-render the chrome around a table and steal focus just as a table
// refresh can.
package coordinator
