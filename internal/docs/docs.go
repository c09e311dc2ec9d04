// Package docs embeds the markdown help topics printed by `pagemgr docs`.
package docs

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed content/*.md
var contentFS embed.FS

// Topic is one help page. Summary is the first non-heading line of the body.
type Topic struct {
	Name    string `json:"name" yaml:"name"`
	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
}

func Topics() []Topic {
	entries, err := fs.Glob(contentFS, "content/*.md")
	if err != nil {
		return []Topic{}
	}
	topics := make([]Topic, 0, len(entries))
	for _, p := range entries {
		base := path.Base(p)
		name := strings.TrimSuffix(base, path.Ext(base))
		if name == "" {
			continue
		}
		body, _ := contentFS.ReadFile(p)
		title, summary := describe(string(body))
		if title == "" {
			title = name
		}
		topics = append(topics, Topic{Name: name, Title: title, Summary: summary})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics
}

func Get(topic string) (string, bool) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" || strings.ContainsAny(topic, `/\`) {
		return "", false
	}
	b, err := contentFS.ReadFile(path.Join("content", topic+".md"))
	if err != nil {
		return "", false
	}
	return string(b), true
}

func describe(body string) (title, summary string) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "# ") && title == "":
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		case strings.HasPrefix(line, "#"):
		default:
			return title, line
		}
	}
	return title, ""
}
