package publish

import (
	"strings"
	"unicode"

	"shorts-pipeline/internal/types"
)

const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
)

// Metadata is what every platform shows next to the video
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

// NewMetadata derives upload metadata from the configured title and the fact
// the video tells
func NewMetadata(title string, fact types.Fact) Metadata {
	tags := []string{"shorts", "facts"}
	if tag := hashtag(fact.Topic.Text); tag != "" {
		tags = append(tags, tag)
	}

	var desc strings.Builder
	desc.WriteString(strings.TrimSpace(fact.Text))
	desc.WriteString("\n\n")
	for i, t := range tags {
		if i > 0 {
			desc.WriteString(" ")
		}
		desc.WriteString("#" + t)
	}

	return Metadata{
		Title:       clip(title, maxTitleRunes),
		Description: clip(desc.String(), maxDescriptionRunes),
		Tags:        tags,
	}
}

func hashtag(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
