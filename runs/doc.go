// Package runs holds the in-memory collection of evaluation runs shown in the
// runboard UI.
//
// A Store owns three pieces of state:
//   - an ordered slice of Run records (insertion order is display order)
//   - an index from run identifier to position in that slice
//   - an optional filter set plus pagination counters
//
// All mutations go through Store methods. UpsertRun keeps the slice and index
// consistent: for every indexed identifier g, Runs()[Index()[g]].ID() == g.
// AppendRuns is the bulk fast path for freshly fetched pages and does not
// touch the index.
//
// Readers that need to react to changes register a Listener with Subscribe.
// Listeners are called synchronously after each mutation, outside the store's
// lock, so a listener may read the store.
//
// # Example
//
//	all := runs.New("all", runs.WithEmptyFilters())
//	unsubscribe := all.Subscribe(func(e runs.Event) {
//	    fmt.Println(e.Store, e.Kind, e.ID)
//	})
//	defer unsubscribe()
//
//	if err := all.UpsertRun(runs.Run{"guid": "g1", "verdict": "AC"}); err != nil {
//	    return err
//	}
//	_ = all.ApplyFilter(runs.Filters{runs.FilterVerdict: "AC"})
package runs
