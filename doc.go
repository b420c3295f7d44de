// Package gotable provides stateful, server-side HTML data tables.
//
// # Overview
//
// A table type is declared once with Declare from widgets bound to column
// keys and a Meta configuration. A TableView binds a table type to an
// instance id. For each request a Controller:
//   - restores the view state (visible columns, sort, filter) from an
//     explicit profile, the last used profile or the session;
//   - applies the request: ajax actions, search, filter form, sort, column
//     setup or CSV export;
//   - saves the state back to the session;
//   - renders the page or a partial refresh through an HTMLRenderer.
//
// Key concepts
//   - DataSource: filtering, ordering, windowing and iteration over gorm
//     models (GormSource), raw SQL (NewSQLSource), slices (SliceSource) and
//     iterators (SeqSource).
//   - Paginator: eager (counts everything), lazy (probes with a lookahead
//     row, never counts) and lazy-segment (counts a bounded window).
//   - Widget: extracts a value from a row through a reference path and
//     renders it as safe HTML.
//   - Profile: a persisted view state, stored through a ProfileStore.
package gotable
