package page

import (
	"encoding/json"
	"strings"
)

const DefaultRootTitle = "Generated Page"

// Document is the generated page: an ordered list of blocks plus root metadata.
// The JSON shape is the block editor's native format.
type Document struct {
	Content []Block        `json:"content"`
	Root    Root           `json:"root"`
	Theme   map[string]any `json:"theme,omitempty"`
}

type Root struct {
	Props map[string]any `json:"props"`
}

// Block is one content section. Props stays an open map so fields the model
// adds (items, colors, layout, ...) survive a round trip untouched.
type Block struct {
	Type  string `json:"type"`
	Props Props  `json:"props"`
}

type Props map[string]any

const (
	PropID          = "id"
	PropTitle       = "title"
	PropImagePrompt = "imagePrompt"
	PropImageURL    = "imageUrl"
	PropBackground  = "backgroundColor"
	PropLayout      = "layout"
)

func (p Props) String(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

func (b Block) ID() string          { return b.Props.String(PropID) }
func (b Block) Title() string       { return b.Props.String(PropTitle) }
func (b Block) ImagePrompt() string { return strings.TrimSpace(b.Props.String(PropImagePrompt)) }
func (b Block) ImageURL() string    { return b.Props.String(PropImageURL) }
func (b Block) Kind() BlockKind     { return KindOf(b.Type) }

// WithProp returns a copy of b with key set. The receiver is not modified.
func (b Block) WithProp(key string, val any) Block {
	props := make(Props, len(b.Props)+1)
	for k, v := range b.Props {
		props[k] = v
	}
	props[key] = val
	return Block{Type: b.Type, Props: props}
}

func (d Document) Title() string {
	if d.Root.Props == nil {
		return ""
	}
	s, _ := d.Root.Props["title"].(string)
	return s
}

// ImageBlocks returns the blocks carrying a non-empty image directive.
func (d Document) ImageBlocks() []Block {
	out := make([]Block, 0, len(d.Content))
	for _, b := range d.Content {
		if b.ImagePrompt() != "" {
			out = append(out, b)
		}
	}
	return out
}

// CountImages returns how many blocks have a resolved image URL.
func (d Document) CountImages() int {
	n := 0
	for _, b := range d.Content {
		if b.ImageURL() != "" {
			n++
		}
	}
	return n
}

// ConventionReport describes whether the model followed the layout rules it
// was asked to follow. Violations are reported, never repaired.
type ConventionReport struct {
	FirstIsLanding bool
	LastIsCTA      bool
}

func (r ConventionReport) OK() bool { return r.FirstIsLanding && r.LastIsCTA }

func (d Document) Conventions() ConventionReport {
	if len(d.Content) == 0 {
		return ConventionReport{}
	}
	return ConventionReport{
		FirstIsLanding: d.Content[0].Kind() == KindHero,
		LastIsCTA:      d.Content[len(d.Content)-1].Kind() == KindCTA,
	}
}
