package models

import "strings"

type Category string

const (
	CategoryImage Category = "image"
	CategoryPDF   Category = "pdf"
	CategoryNote  Category = "note"
	CategoryOther Category = "other"
)

const MimeTypeNote = "text/plain"

func CategoryOf(mimeType string) Category {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case mimeType == "application/pdf":
		return CategoryPDF
	case mimeType == MimeTypeNote:
		return CategoryNote
	default:
		return CategoryOther
	}
}

func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(s)); c {
	case CategoryImage, CategoryPDF, CategoryNote, CategoryOther:
		return c, true
	}
	return "", false
}
