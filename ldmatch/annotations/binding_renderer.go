package annotations

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// BindingRenderer pretty-prints binding sets and single bindings
type BindingRenderer struct {
	useColor bool
}

// NewBindingRenderer creates a new binding renderer
func NewBindingRenderer(useColor bool) *BindingRenderer {
	return &BindingRenderer{useColor: useColor}
}

// RenderBindings renders a binding set summary, e.g. Bindings([?x ?y], 3)
func (r *BindingRenderer) RenderBindings(vars []string, count int) string {
	varList := strings.Join(vars, " ")

	if r.useColor {
		return fmt.Sprintf("%s%s%s%s%s",
			color.BlueString("Bindings(["),
			color.CyanString(varList),
			color.BlueString("], "),
			r.colorizeCount("Bindings", count),
			color.BlueString(")"))
	}

	return fmt.Sprintf("Bindings([%s], %d Bindings)", varList, count)
}

// RenderBinding renders one binding given as variable/value pairs in order
func (r *BindingRenderer) RenderBinding(vars []string, values []string) string {
	parts := make([]string, 0, len(vars))
	for i, v := range vars {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		if r.useColor {
			parts = append(parts, color.CyanString(v)+" "+value)
		} else {
			parts = append(parts, v+" "+value)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RenderMatch renders a registration name with its variables
func (r *BindingRenderer) RenderMatch(name string, vars []string) string {
	if r.useColor {
		return fmt.Sprintf("%s%s%s%s%s",
			color.BlueString("Match("),
			color.CyanString(name),
			color.BlueString(", ["),
			strings.Join(vars, " "),
			color.BlueString("])"))
	}
	return fmt.Sprintf("Match(%s, [%s])", name, strings.Join(vars, " "))
}

func (r *BindingRenderer) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !r.useColor {
		return text
	}
	if count == 0 {
		return color.YellowString(text)
	}
	return color.MagentaString(text)
}
