package gotable

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// ColumnRename maps a renamed column key to its new key.
type ColumnRename struct {
	Old string
	New string
}

// ParseColumnRename parses an "old:new" pair.
func ParseColumnRename(s string) (ColumnRename, error) {
	from, to, ok := strings.Cut(s, ":")
	if !ok || from == "" || to == "" {
		return ColumnRename{}, fmt.Errorf("column rename %q: want old:new", s)
	}

	return ColumnRename{Old: from, New: to}, nil
}

// RenameProfileColumns rewrites the visible columns of every stored profile
// of the table after column keys were renamed. A renamed column moves to the
// end of the visible list unless its new key is visible already. Profiles without a readable state are skipped.
// It returns the updated profiles.
func RenameProfileColumns(ctx context.Context, store ProfileStore, table string, renames []ColumnRename) ([]Profile, error) {
	profiles, err := store.List(ctx, ProfileQuery{TableViewName: table})
	if err != nil {
		return nil, err
	}

	var updated []Profile
	for _, p := range profiles {
		state := p.State()
		if state == nil || state.Visible == nil {
			continue
		}

		changed := false
		for _, rename := range renames {
			i := slices.Index(state.Visible, rename.Old)
			if i < 0 {
				continue
			}

			state.Visible = slices.Delete(state.Visible, i, i+1)
			if !slices.Contains(state.Visible, rename.New) {
				state.Visible = append(state.Visible, rename.New)
			}
			changed = true
		}

		if !changed {
			continue
		}

		if p.Dump, err = DumpState(state); err != nil {
			return updated, err
		}

		if err = store.Save(ctx, &p); err != nil {
			return updated, err
		}
		updated = append(updated, p)
	}

	return updated, nil
}
