package compose

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts the plan's task graph to Graphviz DOT format. Loader nodes
// are labeled with their region name and bounds, fill nodes with their shape,
// chunk nodes with their ID suffix. Useful for inspecting what a plan will
// execute before materializing it.
func (p *Plan) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph plan {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, id := range p.graph.NodeIDs() {
		label, attrs := p.nodeStyle(id)
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", id, label, attrs)
	}

	buf.WriteString("\n")
	for _, id := range p.graph.NodeIDs() {
		for _, dep := range p.graph.Deps(id) {
			fmt.Fprintf(&buf, "  %q -> %q;\n", dep, id)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func (p *Plan) nodeStyle(id string) (label, attrs string) {
	switch {
	case strings.HasPrefix(id, "loader-"):
		ri := 0
		fmt.Sscanf(id[strings.LastIndexByte(id, '-')+1:], "%d", &ri)
		name := p.regions[ri].Name
		if name == "" {
			name = fmt.Sprintf("region %d", ri)
		}
		return fmt.Sprintf("load %s\n%v", name, p.bounds[ri]), ", fillcolor=lightblue"
	case strings.HasPrefix(id, "fill-"):
		return fmt.Sprintf("fill %s", id[strings.LastIndexByte(id, '-')+1:]), ", fillcolor=lightgrey, style=\"rounded,filled,dashed\""
	default:
		return fmt.Sprintf("chunk %s", id[strings.LastIndexByte(id, '-')+1:]), ""
	}
}

// RenderSVG renders the plan graph to SVG using Graphviz.
func (p *Plan) RenderSVG(ctx context.Context) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(p.ToDOT()))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
