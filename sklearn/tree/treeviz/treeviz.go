// Package treeviz renders fitted decision trees with Graphviz and draws
// feature-importance bar charts with gonum/plot.
package treeviz

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/treeml/pkg/errors"
	"github.com/YuminosukeSato/treeml/sklearn/tree"
)

// Format は描画形式
type Format string

const (
	// DOT is plain Graphviz source with layout positions, without xdot
	// drawing operations.
	DOT Format = "dot"
	// SVG is a scalable vector image.
	SVG Format = "svg"
	// PNG is a raster image.
	PNG Format = "png"
	// JPG is a lossy raster image.
	JPG Format = "jpg"
)

// ParseFormat maps a file extension or format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "dot", "gv", "xdot":
		return DOT, nil
	case "svg":
		return SVG, nil
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPG, nil
	}
	return "", errors.NewValidationError("format", "must be one of dot, svg, png, jpg", s)
}

func (f Format) graphviz() graphviz.Format {
	switch f {
	case SVG:
		return graphviz.SVG
	case PNG:
		return graphviz.PNG
	case JPG:
		return graphviz.JPG
	}
	return graphviz.Format(DOT)
}

// leafColors fills leaves by predicted class.
var leafColors = []string{
	"#e58139", "#399de5", "#47e539", "#d739e5", "#e5d439",
	"#39e5c6", "#e53958", "#8139e5", "#7be539", "#e539a8",
}

// Option configures labels.
type Option func(*labeler)

type labeler struct {
	featureNames []string
	classNames   []string
	precision    int
}

// WithFeatureNames labels splits by name instead of x[j].
func WithFeatureNames(names ...string) Option {
	return func(l *labeler) { l.featureNames = names }
}

// WithClassNames labels leaves by name instead of the class index.
func WithClassNames(names ...string) Option {
	return func(l *labeler) { l.classNames = names }
}

// WithPrecision sets the number of significant digits of thresholds and scores.
func WithPrecision(digits int) Option {
	return func(l *labeler) {
		if digits > 0 {
			l.precision = digits
		}
	}
}

func newLabeler(opts []Option) *labeler {
	l := &labeler{precision: 4}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *labeler) feature(j int) string {
	if j >= 0 && j < len(l.featureNames) && l.featureNames[j] != "" {
		return l.featureNames[j]
	}
	return fmt.Sprintf("x[%d]", j)
}

func (l *labeler) class(c int) string {
	if c >= 0 && c < len(l.classNames) && l.classNames[c] != "" {
		return l.classNames[c]
	}
	return strconv.Itoa(c)
}

func (l *labeler) num(v float64) string {
	return strconv.FormatFloat(v, 'g', l.precision, 64)
}

// nodeLabel returns the label of node i; lines are joined by the
// Graphviz centered line break.
func (l *labeler) nodeLabel(t *tree.Tree, i int) string {
	n := t.Nodes[i]
	var lines []string
	if !n.IsLeaf {
		lines = append(lines, fmt.Sprintf("%s < %s", l.feature(n.Feature), l.num(n.Threshold)))
	}
	lines = append(lines,
		"score = "+l.num(n.Score),
		"samples = "+strconv.Itoa(n.NSamples),
	)
	if t.WithProba {
		p := t.Proba(i)
		parts := make([]string, len(p))
		for k, v := range p {
			parts[k] = strconv.FormatFloat(v, 'f', 3, 64)
		}
		lines = append(lines, "proba = ["+strings.Join(parts, ", ")+"]")
	}
	lines = append(lines, "class = "+l.class(n.YPred))
	return strings.Join(lines, `\n`)
}

// Graph builds a Graphviz graph of t. The caller closes both the graph and
// the Graphviz instance.
func Graph(ctx context.Context, t *tree.Tree, opts ...Option) (*graphviz.Graphviz, *graphviz.Graph, error) {
	if t == nil || len(t.Nodes) == 0 {
		return nil, nil, errors.NewValueError("treeviz.Graph", "empty tree")
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "treeviz: graphviz init")
	}
	g, err := gv.Graph()
	if err != nil {
		gv.Close()
		return nil, nil, errors.Wrap(err, "treeviz: create graph")
	}
	if err := draw(g, t, newLabeler(opts)); err != nil {
		g.Close()
		gv.Close()
		return nil, nil, err
	}
	return gv, g, nil
}

func draw(g *cgraph.Graph, t *tree.Tree, l *labeler) error {
	nodes := make([]*cgraph.Node, len(t.Nodes))
	for i := range t.Nodes {
		n, err := g.CreateNodeByName(strconv.Itoa(i))
		if err != nil {
			return errors.Wrapf(err, "treeviz: node %d", i)
		}
		n.SetLabel(l.nodeLabel(t, i))
		if t.Nodes[i].IsLeaf {
			n.SetShape(cgraph.BoxShape).
				SetStyle(cgraph.FilledNodeStyle).
				SetFillColor(leafColors[t.Nodes[i].YPred%len(leafColors)])
		}
		nodes[i] = n
	}
	for i, n := range t.Nodes {
		if n.IsLeaf {
			continue
		}
		left, err := g.CreateEdgeByName(fmt.Sprintf("%d-l", i), nodes[i], nodes[n.LeftChild])
		if err != nil {
			return errors.Wrapf(err, "treeviz: edge %d", i)
		}
		left.SetLabel("True")
		right, err := g.CreateEdgeByName(fmt.Sprintf("%d-r", i), nodes[i], nodes[n.RightChild])
		if err != nil {
			return errors.Wrapf(err, "treeviz: edge %d", i)
		}
		right.SetLabel("False")
	}
	return nil
}

// Render writes t to w in the given format.
func Render(ctx context.Context, w io.Writer, t *tree.Tree, format Format, opts ...Option) error {
	gv, g, err := Graph(ctx, t, opts...)
	if err != nil {
		return err
	}
	defer func() {
		g.Close()
		gv.Close()
	}()
	if err := gv.Render(ctx, g, format.graphviz(), w); err != nil {
		return errors.Wrapf(err, "treeviz: render %s", format)
	}
	return nil
}

// PlotImportances draws a bar chart of importances, one bar per feature, and
// writes it to w as png, svg or pdf.
func PlotImportances(w io.Writer, importances []float64, names []string, format string) error {
	if len(importances) == 0 {
		return errors.NewValueError("treeviz.PlotImportances", "no importances to plot")
	}
	if names == nil {
		l := newLabeler(nil)
		names = make([]string, len(importances))
		for j := range names {
			names[j] = l.feature(j)
		}
	}
	if len(names) != len(importances) {
		return errors.NewDimensionError("treeviz.PlotImportances", len(importances), len(names), 0)
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "Importance"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "treeviz: bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(1)
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(len(importances))*vg.Points(30) + 2*vg.Inch
	wt, err := p.WriterTo(width, 3*vg.Inch, format)
	if err != nil {
		return errors.Wrap(err, "treeviz: plot writer")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "treeviz: write plot")
	}
	return nil
}
