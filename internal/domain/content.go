package domain

import "fmt"

// ContentType discriminates which external module owns the source content.
// The index holds at most one document per (ContentID, ContentType) pair.
type ContentType string

const (
	ContentTypeContent    ContentType = "content"
	ContentTypeDocument   ContentType = "document"
	ContentTypeMedia      ContentType = "media"
	ContentTypeFAQ        ContentType = "faq"
	ContentTypeUser       ContentType = "user"
	ContentTypeDepartment ContentType = "department"
	ContentTypeEmployee   ContentType = "employee"
)

// ContentTypes lists all known content types.
func ContentTypes() []ContentType {
	return []ContentType{
		ContentTypeContent, ContentTypeDocument, ContentTypeMedia,
		ContentTypeFAQ, ContentTypeUser, ContentTypeDepartment, ContentTypeEmployee,
	}
}

// ParseContentType validates and normalizes a content type string.
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(s)
	for _, known := range ContentTypes() {
		if ct == known {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown content type %q: %w", s, ErrValidation)
}

// ContentKey identifies one piece of external content. The id is opaque:
// no referential integrity spans the content modules.
type ContentKey struct {
	ID   string
	Type ContentType
}

// NewContentKey validates and creates a content key.
func NewContentKey(id string, contentType ContentType) (ContentKey, error) {
	if id == "" {
		return ContentKey{}, fmt.Errorf("content id is required: %w", ErrValidation)
	}
	if _, err := ParseContentType(string(contentType)); err != nil {
		return ContentKey{}, err
	}
	return ContentKey{ID: id, Type: contentType}, nil
}

func (k ContentKey) String() string {
	return string(k.Type) + ":" + k.ID
}
