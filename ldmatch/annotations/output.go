package annotations

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter renders match events as one line each, colored when
// writing to a terminal.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *BindingRenderer
}

// NewOutputFormatter creates a formatter for w, coloring only when w is a
// terminal and color is not disabled.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}

	return NewOutputFormatterWithColor(w, useColor)
}

// NewOutputFormatterWithColor creates a formatter with color forced on or off
func NewOutputFormatterWithColor(w io.Writer, useColor bool) *OutputFormatter {
	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewBindingRenderer(useColor),
	}
}

// Handle writes the formatted event to the formatter's writer
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format renders one event. Unknown events are printed with their raw data.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)
	data := event.Data

	switch event.Name {
	case MatchInvoked:
		return fmt.Sprintf("%s %s Run %s with %d matches",
			latency,
			f.colorize("===", color.FgYellow),
			stringField(data, "run.id"),
			intField(data, "match.count"))

	case MatchFlattened:
		if _, ok := data["subject.count"]; !ok {
			return fmt.Sprintf("%s Flattened %d patterns", latency, intField(data, "pattern.count"))
		}
		return fmt.Sprintf("%s Flattened document to %s and %d patterns",
			latency,
			f.colorizeCount("subjects", intField(data, "subject.count")),
			intField(data, "pattern.count"))

	case PatternCompiled:
		return fmt.Sprintf("%s Compiled %s into %d operators",
			latency,
			f.renderer.RenderMatch(stringField(data, "match"), stringsField(data, "vars")),
			intField(data, "source.nodes"))

	case PatternFault:
		return fmt.Sprintf("%s %s %s fault: %v",
			latency,
			f.colorize("✗", color.FgRed),
			stringField(data, "match"),
			data["error"])

	case PatternComplete:
		result := f.renderer.RenderBindings(stringsField(data, "vars"), intField(data, "binding.count"))
		if faults := intField(data, "fault.count"); faults > 0 {
			return fmt.Sprintf("%s %s → %s, %s",
				latency,
				stringField(data, "match"),
				result,
				f.colorize(fmt.Sprintf("%d faults", faults), color.FgRed))
		}
		return fmt.Sprintf("%s %s → %s", latency, stringField(data, "match"), result)

	case MatchComplete:
		if success, _ := data["success"].(bool); !success {
			return fmt.Sprintf("%s %s Run failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				data["error"])
		}
		return fmt.Sprintf("%s %s Run done with %s",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("bindings", intField(data, "binding.count")))

	case ErrorNormalization:
		return fmt.Sprintf("%s %s Normalization failed: %v",
			latency,
			f.colorize("✗", color.FgRed),
			data["error"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, data)
	}
}

// latencyColors picks the color of a latency from its upper bound
var latencyColors = []struct {
	below time.Duration
	color color.Attribute
}{
	{50 * time.Millisecond, color.FgGreen},
	{200 * time.Millisecond, color.FgYellow},
}

// formatLatency renders d as [NNNµs] below one millisecond and [N.Nms]
// above, green when fast and red when slow.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	var s string
	if d < time.Millisecond {
		s = fmt.Sprintf("[%dµs]", d.Microseconds())
	} else {
		s = fmt.Sprintf("[%.1fms]", float64(d.Microseconds())/1000)
	}

	attr := color.FgRed
	for _, lc := range latencyColors {
		if d < lc.below {
			attr = lc.color
			break
		}
	}
	return f.colorize(s, attr)
}

// countColors colors counts by what they count
var countColors = map[string]color.Attribute{
	"subjects": color.FgCyan,
	"bindings": color.FgMagenta,
}

func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if attr, ok := countColors[label]; ok {
		return f.colorize(text, attr)
	}
	return text
}

func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stderr.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}

func intField(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringsField(data map[string]interface{}, key string) []string {
	s, _ := data[key].([]string)
	return s
}
