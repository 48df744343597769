package supplyparser

import (
	"strings"

	"github.com/giygas/iyakuhin-supply/supplyparser/entities"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkMatcher decides whether an anchor points at the workbook we want.
type LinkMatcher func(link entities.AnchorLink) bool

// WorkbookLinkMatcher matches hrefs ending with extension and containing
// keyword, both compared case-insensitively.
func WorkbookLinkMatcher(extension, keyword string) LinkMatcher {
	extension = strings.ToLower(extension)
	keyword = strings.ToLower(keyword)
	return func(link entities.AnchorLink) bool {
		href := strings.ToLower(link.Href)
		return strings.HasSuffix(href, extension) && strings.Contains(href, keyword)
	}
}

// ScanAnchors returns every <a href> of the document in document order.
func ScanAnchors(page string) ([]entities.AnchorLink, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var links []entities.AnchorLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := attr(n, "href"); ok {
				links = append(links, entities.AnchorLink{
					Href: strings.TrimSpace(href),
					Text: strings.TrimSpace(textContent(n)),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// FindAnchor returns the first anchor accepted by match.
func FindAnchor(links []entities.AnchorLink, match LinkMatcher) (entities.AnchorLink, bool) {
	for _, link := range links {
		if match(link) {
			return link, true
		}
	}
	return entities.AnchorLink{}, false
}

// ResolveWorkbookLink finds the workbook anchor on the index page and turns it
// into an absolute URL plus the file name it will be published under.
func ResolveWorkbookLink(page, pageURL, baseURL string, match LinkMatcher, keyword string) (entities.WorkbookLink, error) {
	links, err := ScanAnchors(page)
	if err != nil {
		return entities.WorkbookLink{}, &ResolutionError{PageURL: pageURL, Keyword: keyword, Err: err}
	}

	anchor, ok := FindAnchor(links, match)
	if !ok {
		return entities.WorkbookLink{}, &ResolutionError{PageURL: pageURL, Keyword: keyword, Err: ErrNoMatchingLink}
	}

	return entities.WorkbookLink{
		URL:      absoluteURL(baseURL, anchor.Href),
		Filename: lastSegment(anchor.Href),
	}, nil
}

// absoluteURL prefixes site-relative hrefs with the base URL; anything else
// is taken as already absolute.
func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(baseURL, "/") + href
	}
	return href
}

func lastSegment(href string) string {
	return href[strings.LastIndex(href, "/")+1:]
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
