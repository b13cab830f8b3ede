package page

import "strings"

// BlockKind is the closed set of section types the catalog knows about.
// Anything else maps to KindUnknown and renders with the generic fallback.
type BlockKind int

const (
	KindUnknown BlockKind = iota
	KindHero
	KindFeatures
	KindBenefits
	KindGallery
	KindTestimonials
	KindProcess
	KindPricing
	KindFAQ
	KindStats
	KindTeam
	KindAbout
	KindContact
	KindCTA
	KindComparison
	KindTimeline
	KindPortfolio
	KindNewsletter
	KindPartners
	KindVideoShowcase
	KindDetailedProduct
)

// sectionTypes is in catalog order.
var sectionTypes = []struct {
	name string
	kind BlockKind
}{
	{"Hero", KindHero},
	{"Features", KindFeatures},
	{"Benefits", KindBenefits},
	{"Gallery", KindGallery},
	{"Testimonials", KindTestimonials},
	{"Process", KindProcess},
	{"Pricing", KindPricing},
	{"FAQ", KindFAQ},
	{"Stats", KindStats},
	{"Team", KindTeam},
	{"About", KindAbout},
	{"Contact", KindContact},
	{"CTA", KindCTA},
	{"Comparison", KindComparison},
	{"Timeline", KindTimeline},
	{"Portfolio", KindPortfolio},
	{"Newsletter", KindNewsletter},
	{"Partners", KindPartners},
	{"VideoShowcase", KindVideoShowcase},
	{"DetailedProduct", KindDetailedProduct},
}

var kindByName = func() map[string]BlockKind {
	m := make(map[string]BlockKind, len(sectionTypes))
	for _, st := range sectionTypes {
		m[strings.ToLower(st.name)] = st.kind
	}
	return m
}()

// KindOf maps a block type name to its kind, case-insensitively.
func KindOf(typeName string) BlockKind {
	if k, ok := kindByName[strings.ToLower(strings.TrimSpace(typeName))]; ok {
		return k
	}
	return KindUnknown
}

func (k BlockKind) String() string {
	for _, st := range sectionTypes {
		if st.kind == k {
			return st.name
		}
	}
	return "Unknown"
}

// HasDedicatedRenderer reports whether the editor ships a purpose-built
// component for k. Everything else goes to the fallback section.
func (k BlockKind) HasDedicatedRenderer() bool {
	switch k {
	case KindHero, KindFeatures, KindBenefits, KindGallery, KindTestimonials,
		KindProcess, KindFAQ, KindStats, KindCTA:
		return true
	default:
		return false
	}
}

// SectionTypes returns every catalog type name in catalog order.
func SectionTypes() []string {
	out := make([]string, len(sectionTypes))
	for i, st := range sectionTypes {
		out[i] = st.name
	}
	return out
}

// OfferedTypes returns the type names offered to the model for a page with
// sectionCount blocks, in catalog order. Hero and CTA are always included so
// the first and last block rules can be met; the remaining slots are filled
// from the front of the catalog up to sectionCount+3 names.
func OfferedTypes(sectionCount int) []string {
	n := sectionCount + 3
	if n > len(sectionTypes) {
		n = len(sectionTypes)
	}
	if n < 2 {
		n = 2
	}
	free := n - 2
	out := make([]string, 0, n)
	for _, st := range sectionTypes {
		switch {
		case st.kind == KindHero || st.kind == KindCTA:
			out = append(out, st.name)
		case free > 0:
			out = append(out, st.name)
			free--
		}
	}
	return out
}
