package session

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alanlang/touchstone/internal/fixture"
)

// WriteFixtureTable renders the store as a table: one row per case with
// its stages, review state and pending-review count. Shared between the
// session's list command and `touchstone list`.
func WriteFixtureTable(w io.Writer, st *fixture.Store) {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Path", "Stages", "Checked", "Stale", "Pending"})
	for _, key := range st.Paths() {
		c, _ := st.Get(key)
		stages := c.Stages()
		sort.Strings(stages)
		pending := 0
		for _, name := range stages {
			if r := c.Result(name); r != nil && r.Vouch == fixture.VouchPending {
				pending++
			}
		}
		table.Append([]string{
			key,
			strings.Join(stages, ","),
			yesNo(c.Checked),
			yesNo(c.Stale),
			fmt.Sprintf("%d", pending),
		})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
