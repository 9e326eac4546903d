package source

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	articleLineRe = regexp.MustCompile(`^([a-z0-9_/-]+\.html)\s+([a-zA-Z0-9_-]+)\s*`)
	blogLineRe    = regexp.MustCompile(`^[bB]log\s*([1-9][0-9]*)?\s*(\([^)]*\))?\s+([a-zA-Z0-9_-]+)\s*`)
)

// ArticleEntry is one standalone page of the index.
type ArticleEntry struct {
	// DestName is the output path relative to the output directory.
	DestName string
	ID       string
}

// BlogEntry is one blog source document of the index.
type BlogEntry struct {
	ID string
	// Site is the optional number after "blog"; 0 when absent.
	Site    int
	Comment string
}

// Index lists the documents a site is made of.
type Index struct {
	Articles []ArticleEntry
	Blogs    []BlogEntry
}

// ParseIndex reads the plain-text index document. Each line is either
//
//	<dest-path>.html <doc-id>
//	blog [N] [(comment)] <doc-id>
//
// Anything else is ignored.
func ParseIndex(content []byte) Index {
	var idx Index
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if m := articleLineRe.FindStringSubmatch(line); m != nil {
			idx.Articles = append(idx.Articles, ArticleEntry{DestName: m[1], ID: m[2]})
			continue
		}
		if m := blogLineRe.FindStringSubmatch(line); m != nil {
			site, _ := strconv.Atoi(m[1])
			comment := strings.TrimSuffix(strings.TrimPrefix(m[2], "("), ")")
			idx.Blogs = append(idx.Blogs, BlogEntry{ID: m[3], Site: site, Comment: comment})
		}
	}
	return idx
}
