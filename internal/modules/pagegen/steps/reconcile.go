package steps

import "github.com/dydqjadlsp/detailpage/internal/domain/page"

// Reconcile returns doc with imageUrl set on every block whose id is in urls.
// Other blocks are carried over as-is and doc itself is left untouched.
func Reconcile(doc page.Document, urls map[string]string) page.Document {
	out := page.Document{Root: doc.Root, Theme: doc.Theme}
	out.Content = make([]page.Block, len(doc.Content))
	for i, b := range doc.Content {
		if url, ok := urls[b.ID()]; ok && url != "" {
			out.Content[i] = b.WithProp(page.PropImageURL, url)
			continue
		}
		out.Content[i] = b
	}
	return out
}
