package problem

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteSummary writes a table of the parameters being optimized: one row per
// full-space coordinate with its name, whether it is free, its bounds and its
// scale.
func (p *Problem) WriteSummary(w io.Writer) error {
	free := make(map[int]bool, p.Dim())
	for _, i := range p.FreeIndices() {
		free[i] = true
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tfree\tlb\tub\tscale")
	for i := 0; i < p.dimFull; i++ {
		fmt.Fprintf(tw, "%s\t%t\t%g\t%g\t%s\n",
			p.names[i], free[i], p.lbFull[i], p.ubFull[i], p.scales[i])
	}
	return tw.Flush()
}

// Summary returns the parameter table as a string.
func (p *Problem) Summary() string {
	var b strings.Builder
	_ = p.WriteSummary(&b)
	return b.String()
}
