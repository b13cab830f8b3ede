package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
)

var funcs = template.FuncMap{"join": strings.Join}

var (
	textT  = template.Must(template.New("text").Funcs(funcs).Option("missingkey=zero").Parse(textTemplate))
	imageT = template.Must(template.New("image").Option("missingkey=zero").Parse(imageTemplate))
	vibeT  = template.Must(template.New("vibe").Option("missingkey=zero").Parse(vibeTemplate))
)

type textInput struct {
	Guidance     string
	InputLines   []string
	SectionCount int
	OfferedTypes []string
}

type imageInput struct {
	Category     string
	SectionType  string
	SectionTitle string
	Directive    string
}

type vibeInput struct {
	Message      string
	DocumentJSON string
}

// Text renders the generation instruction for a category, the user's form
// fields and the target block count. The template is fixed and its inputs are
// plain strings, so rendering cannot fail at runtime.
func Text(catalog *page.Catalog, category string, inputs page.Inputs, sectionCount int) string {
	if catalog == nil {
		catalog = page.DefaultCatalog()
	}
	out, err := render(textT, textInput{
		Guidance:     catalog.Guidance(category),
		InputLines:   InputLines(inputs),
		SectionCount: sectionCount,
		OfferedTypes: page.OfferedTypes(sectionCount),
	})
	if err != nil {
		panic(err)
	}
	return out
}

// Image renders the per-block image instruction.
func Image(sectionType, sectionTitle, directive, category string) (string, error) {
	return render(imageT, imageInput{
		Category:     category,
		SectionType:  sectionType,
		SectionTitle: sectionTitle,
		Directive:    directive,
	})
}

// Vibe renders a modification request against the current document. The
// document is embedded as two-space indented JSON.
func Vibe(message string, current json.RawMessage) (string, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, current, "", "  "); err != nil {
		return "", fmt.Errorf("indent current document: %w", err)
	}
	return render(vibeT, vibeInput{Message: message, DocumentJSON: pretty.String()})
}

// InputLines formats each field as "key: value" in request order.
func InputLines(inputs page.Inputs) []string {
	out := make([]string, 0, len(inputs))
	for _, f := range inputs {
		out = append(out, f.Key+": "+page.FormatValue(f.Value))
	}
	return out
}

func render(t *template.Template, in any) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
