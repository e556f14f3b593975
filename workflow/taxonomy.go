package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	clusterTablePattern = regexp.MustCompile(`(?s)<cluster_table>(.*?)</cluster_table>`)
	clusterListPattern  = regexp.MustCompile(`(?s)<clusters>(.*?)</clusters>`)
	clusterPattern      = regexp.MustCompile(`(?s)<cluster>(.*?)</cluster>`)
	idPattern           = regexp.MustCompile(`(?s)<id>(.*?)</id>`)
	namePattern         = regexp.MustCompile(`(?s)<name>(.*?)</name>`)
	descriptionPattern  = regexp.MustCompile(`(?s)<description>(.*?)</description>`)
)

// ParseClusterTable extracts categories from a taxonomy response. The body
// is the content between a <cluster_table> (or <clusters>) tag pair,
// containing repeated <cluster> entries with <id>, <name>, and <description>
// sub-fields. Malformed entries are dropped; malformed or missing markup
// yields an empty list, which callers must treat as fatal.
func ParseClusterTable(content string) []Category {
	body := content
	if m := clusterTablePattern.FindStringSubmatch(content); m != nil {
		body = m[1]
	} else if m := clusterListPattern.FindStringSubmatch(content); m != nil {
		body = m[1]
	}

	var categories []Category
	for _, entry := range clusterPattern.FindAllStringSubmatch(body, -1) {
		c := Category{
			ID:          extractField(idPattern, entry[1]),
			Name:        extractField(namePattern, entry[1]),
			Description: extractField(descriptionPattern, entry[1]),
		}
		if c.Name == "" {
			continue
		}
		categories = append(categories, c)
	}

	return categories
}

func extractField(pattern *regexp.Regexp, body string) string {
	m := pattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// FormatClusterTable renders categories as the nested markup used in update,
// review, and label prompts.
func FormatClusterTable(categories []Category) string {
	var sb strings.Builder
	sb.WriteString("<cluster_table>\n")
	for _, c := range categories {
		sb.WriteString("  <cluster>\n")
		fmt.Fprintf(&sb, "    <id>%s</id>\n", c.ID)
		fmt.Fprintf(&sb, "    <name>%s</name>\n", c.Name)
		fmt.Fprintf(&sb, "    <description>%s</description>\n", c.Description)
		sb.WriteString("  </cluster>\n")
	}
	sb.WriteString("</cluster_table>")
	return sb.String()
}

func formatDocuments(docs []Document) string {
	var sb strings.Builder
	sb.WriteString("<documents>\n")
	for _, d := range docs {
		sb.WriteString("  <doc>\n")
		fmt.Fprintf(&sb, "    <id>%s</id>\n", d.ID)
		fmt.Fprintf(&sb, "    <text>%s</text>\n", d.Text())
		sb.WriteString("  </doc>\n")
	}
	sb.WriteString("</documents>")
	return sb.String()
}

func categoryByID(taxonomy []Category, id string) (Category, bool) {
	for _, c := range taxonomy {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
