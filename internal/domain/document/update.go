package document

import "github.com/khojilab/khoji/internal/domain"

// Update is a partial field merge for a stored document. Nil fields are
// left untouched; localized maps replace whole per-language values.
type Update struct {
	Title       domain.LocalizedText
	Body        domain.LocalizedText
	Description domain.LocalizedText
	Tags        []string
	Language    *domain.Language
	IsPublished *bool
	IsActive    *bool
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Body == nil && u.Description == nil &&
		u.Tags == nil && u.Language == nil && u.IsPublished == nil && u.IsActive == nil
}

// ApplyTo merges the update into doc in place.
func (u Update) ApplyTo(doc *Document) {
	for lang, text := range u.Title {
		if doc.title == nil {
			doc.title = domain.LocalizedText{}
		}
		doc.title[lang] = text
	}
	for lang, text := range u.Body {
		if doc.body == nil {
			doc.body = domain.LocalizedText{}
		}
		doc.body[lang] = text
	}
	for lang, text := range u.Description {
		if doc.description == nil {
			doc.description = domain.LocalizedText{}
		}
		doc.description[lang] = text
	}
	if u.Tags != nil {
		doc.tags = cloneTags(u.Tags)
	}
	if u.Language != nil {
		doc.language = *u.Language
	}
	if u.IsPublished != nil {
		doc.isPublished = *u.IsPublished
	}
	if u.IsActive != nil {
		doc.isActive = *u.IsActive
	}
}
