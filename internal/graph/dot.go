package graph

import (
	"fmt"
	"strings"

	"github.com/moleium/zydiff/internal/function"
)

// Theme holds the colors DOT renders a CFG with, adapted from
// internal/render's geometric NASA theme but trimmed to the handful of
// roles a control flow graph actually needs: no pool-load or vtable
// provenance categories, since a recovered function has no symbolic
// call classification, only direct/conditional/unconditional edges.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	EdgeTaken         string // conditional branch's "true" edge
	EdgeNotTaken      string // conditional branch's "false" edge
	EdgeUnconditional string
}

// Monochrome is the default CFG theme: geometric, monochrome, sparse
// color, in the spirit of internal/render's NASA theme.
var Monochrome = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTaken:         "#0B3D91",
	EdgeNotTaken:      "#FC3D21",
	EdgeUnconditional: "#424242",
}

// DOT renders f's control flow graph as Graphviz DOT, one node per
// block labeled with its instruction text and one edge per successor,
// colored by whether it's a conditional branch's taken/not-taken arm
// or an unconditional edge. It renders from the lattice.FuncCFG Export
// produces, rather than walking f's blocks a second time, so the edge
// structure and call annotations shown here are exactly what ExportAll
// feeds to lattice-based tooling.
func DOT(f function.Function, t Theme) string {
	lcfg := Export(f)
	if len(lcfg.Blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"9\" color=\"%s\">%s</font>>;\n",
		t.TextColor, dotEscape(lcfg.Name))
	b.WriteByte('\n')

	for i, lb := range lcfg.Blocks {
		id := fmt.Sprintf("bb%d", lb.ID)

		blk := f.Blocks[i]
		lines := make([]string, 0, len(blk.Instructions)+len(lb.Calls))
		for _, text := range blk.Instructions {
			lines = append(lines, dotEscape(text))
		}
		for _, c := range lb.Calls {
			lines = append(lines, dotEscape(fmt.Sprintf("-> %s", c.Callee)))
		}
		if len(lines) > 12 {
			kept := append(lines[:5], fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}
		label := strings.Join(lines, `<br align="left"/>`) + `<br align="left"/>`

		attrs := ""
		if i == 0 {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EdgeTaken)
		}
		fmt.Fprintf(&b, "  %s [label=<%s>%s];\n", id, label, attrs)
	}
	b.WriteByte('\n')

	for _, lb := range lcfg.Blocks {
		from := fmt.Sprintf("bb%d", lb.ID)
		for _, s := range lb.Succs {
			to := fmt.Sprintf("bb%d", s.BlockID)
			switch s.Cond {
			case "true":
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">T</font>>];\n", from, to, t.EdgeTaken, t.EdgeTaken)
			case "false":
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">F</font>>];\n", from, to, t.EdgeNotTaken, t.EdgeNotTaken)
			default:
				fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", from, to, t.EdgeUnconditional)
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
