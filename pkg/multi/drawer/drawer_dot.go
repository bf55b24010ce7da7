package drawer

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-multi/internal/store"
	"github.com/askiada/go-multi/pkg/multi/measure"
)

var ErrCycle = errors.New("link would create a cycle")

// DOTDrawer is a drawer that writes the operations of a commit as a DOT graph.
type DOTDrawer struct {
	store    store.CustomStore[string, string]
	graph    graph.Graph[string, string]
	fileName string
}

// NewDOTDrawer creates a new DOT drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	s := store.NewOrderedStore[string, string]()

	return &DOTDrawer{
		store:    s,
		graph:    graph.NewWithStore(graph.StringHash, s, graph.Directed()),
		fileName: fileName,
	}
}

// AddOperation adds an operation to the graph. Adding an operation twice is a no-op.
func (d *DOTDrawer) AddOperation(key, label string) error {
	err := d.graph.AddVertex(key,
		graph.VertexAttribute("shape", "box"),
		graph.VertexAttribute("label", label),
	)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrap(err, "unable to add vertex")
	}

	return nil
}

// AddLink adds a link between an operation and the one running after it.
func (d *DOTDrawer) AddLink(parentName, childName string) error {
	cycle, err := d.store.CreatesCycle(parentName, childName)
	if err != nil {
		return errors.Wrapf(err, "unable to check link from %s to %s", parentName, childName)
	}

	if cycle {
		return errors.Wrapf(ErrCycle, "from %s to %s", parentName, childName)
	}

	err = d.graph.AddEdge(parentName, childName)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

// MarkOperation styles the operation after its outcome.
func (d *DOTDrawer) MarkOperation(name string, status Status) error {
	attrs := map[string]string{}

	switch status {
	case StatusCompleted:
		attrs["style"] = "solid"
	case StatusFailed:
		red, err := colors.RGB(255, 0, 0) //nolint
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}

		attrs["style"] = "filled"
		attrs["fillcolor"] = red.ToHEX().String()
	case StatusSkipped:
		attrs["style"] = "dashed"
		attrs["fontcolor"] = "grey"
		attrs["color"] = "grey"
	default:
		return errors.Errorf("unknown status %q", status)
	}

	return d.setAttributes(name, attrs)
}

// SetTotalTime sets the time elapsed since startTime on the operation.
func (d *DOTDrawer) SetTotalTime(name string, startTime time.Time) error {
	return d.setAttributes(name, map[string]string{"xlabel": time.Since(startTime).String()})
}

func (d *DOTDrawer) setAttributes(name string, attrs map[string]string) error {
	err := d.store.UpdateVertex(name, func(p *graph.VertexProperties) {
		if p.Attributes == nil {
			p.Attributes = make(map[string]string)
		}

		for k, v := range attrs {
			p.Attributes[k] = v
		}
	})
	if err != nil {
		return errors.Wrapf(err, "unable to update vertex %s", name)
	}

	return nil
}

const maxRGB = 240

// AddMeasure colours the edge entering each measured operation from blue (fastest) to red (slowest)
// and labels the operation with its average duration.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	all := msr.AllMetrics()

	minValue, maxValue := time.Duration(math.MaxInt64), time.Duration(0)
	for _, mt := range all {
		if mt.Total() == 0 {
			continue
		}

		avg := mt.AVGDuration()
		minValue = min(minValue, avg)
		maxValue = max(maxValue, avg)
	}

	edges, err := d.graph.Edges()
	if err != nil {
		return errors.Wrap(err, "unable to list edges")
	}

	for _, edge := range edges {
		mt, ok := all[edge.Target]
		if !ok || mt.Total() == 0 {
			continue
		}

		avg := mt.AVGDuration()

		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(avg-minValue) / float64(maxValue-minValue)
		}

		colour, err := colors.RGB(uint8(maxRGB*fraction), 0, uint8(maxRGB-maxRGB*fraction)) //nolint
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}

		err = d.graph.UpdateEdge(edge.Source, edge.Target,
			graph.EdgeAttribute("label", avg.String()),
			graph.EdgeAttribute("fontcolor", "blue"),
			graph.EdgeAttribute("color", colour.ToHEX().String()),
		)
		if err != nil {
			return errors.Wrap(err, "unable to update edge")
		}
	}

	for name, mt := range all {
		if mt.Total() == 0 && mt.GetTotalDuration() == 0 {
			continue
		}

		label := mt.AVGDuration().String()
		if mt.GetTotalDuration() > 0 {
			label = "total: " + mt.GetTotalDuration().String()
		}

		if mt.Failures() > 0 {
			label += fmt.Sprintf(", failures: %d", mt.Failures())
		}

		err = d.setAttributes(name, map[string]string{"xlabel": label})
		if err != nil && !errors.Is(err, graph.ErrVertexNotFound) {
			return err
		}
	}

	return nil
}

// Draw creates the DOT file.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = d.Render(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

// Render writes the DOT description of the graph to wrt.
// Operations and links come out in the order they were added.
func (d *DOTDrawer) Render(wrt io.Writer) error {
	desc, err := d.generateDOT()
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func (d *DOTDrawer) generateDOT() (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	vertices, err := d.store.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list vertices")
	}

	for _, vertex := range vertices {
		_, props, err := d.store.Vertex(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)
		sourceAttributes := make(map[string]string, len(props.Attributes))

		label, ok := props.Attributes["label"]
		if !ok {
			label = vertex
		}

		for k, v := range props.Attributes {
			sourceAttributes[k] = v
		}

		if xlabel, ok := sourceAttributes["xlabel"]; ok {
			htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, label, xlabel)

			delete(sourceAttributes, "xlabel")
			delete(sourceAttributes, "label")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     props.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		})
	}

	edges, err := d.store.ListEdges()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list edges")
	}

	for _, edge := range edges {
		desc.Statements = append(desc.Statements, statement{
			Source:         edge.Source,
			Target:         edge.Target,
			EdgeWeight:     edge.Properties.Weight,
			EdgeAttributes: edge.Properties.Attributes,
		})
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
