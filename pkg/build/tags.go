package build

import "pearldb/pkg/parts"

const (
	// symptomsTitle marks a section listing the symptoms of a condition.
	// The parent article of such a section describes the condition.
	symptomsTitle = "History and Physical"
	// introductionTitle marks a section introducing its article.
	introductionTitle = "Introduction"
)

// tag records the topic flags derived from a stored document's title.
func (b *builder) tag(info *parts.Info) {
	switch info.Title.Value {
	case symptomsTitle:
		b.symptoms[info.Hash] = true
		if parent, ok := b.parents[info.Hash]; ok {
			b.conditions[parent] = true
		}
	case introductionTitle:
		b.introductions[info.Hash] = true
	}
}
