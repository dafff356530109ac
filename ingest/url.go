package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// maxFallbackChars caps the plain-text fallback when a page carries no
// structured recipe data.
const maxFallbackChars = 6000

// Fetcher retrieves and extracts recipe pages.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets a 15s-timeout default.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// FromURL fetches a recipe page and extracts its text and title.
// Structured JSON-LD recipe data is preferred; otherwise the page's main
// content is flattened to plain text.
func (f *Fetcher) FromURL(ctx context.Context, rawURL string) (*RawInput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Source: SourceURL, Subject: rawURL, Reason: "invalid URL", Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Source: SourceURL, Subject: rawURL, Reason: "fetch failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Source: SourceURL, Subject: rawURL, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &Error{Source: SourceURL, Subject: rawURL, Reason: "HTML parse failed", Err: err}
	}

	text := extractRecipeText(doc)
	if text == "" {
		return nil, &Error{Source: SourceURL, Subject: rawURL, Reason: "could not extract recipe text from this URL"}
	}

	title := extractTitle(doc)
	if title == "" {
		title = fallbackTitleFromURL(rawURL)
	}

	return &RawInput{
		ID:     uuid.NewString(),
		Name:   title,
		Source: SourceURL,
		Text:   text,
	}, nil
}

// extractRecipeText prefers JSON-LD Recipe blocks and falls back to the
// page's article/main/body text.
func extractRecipeText(doc *html.Node) string {
	for _, script := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "script" && attr(n, "type") == "application/ld+json"
	}) {
		var data any
		if err := json.Unmarshal([]byte(nodeText(script)), &data); err != nil {
			continue
		}
		if text := textFromJSONLD(data); text != "" {
			return text
		}
	}

	for _, tag := range []string{"article", "main", "body"} {
		if node := findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == tag
		}); node != nil {
			text := strings.Join(strings.Fields(nodeText(node)), " ")
			if text == "" {
				continue
			}
			if len(text) > maxFallbackChars {
				text = text[:maxFallbackChars]
			}
			return text
		}
	}
	return ""
}

// textFromJSONLD pulls name, description, ingredients and instructions
// out of a JSON-LD Recipe object (or a list containing one).
func textFromJSONLD(data any) string {
	items, ok := data.([]any)
	if !ok {
		items = []any{data}
	}
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := item["@type"].(string); t != "Recipe" {
			continue
		}
		var parts []string
		if name, _ := item["name"].(string); name != "" {
			parts = append(parts, name)
		}
		if desc, _ := item["description"].(string); desc != "" {
			parts = append(parts, desc)
		}
		if ingredients, ok := item["recipeIngredient"].([]any); ok && len(ingredients) > 0 {
			parts = append(parts, "Ingredients:")
			for _, ing := range ingredients {
				parts = append(parts, fmt.Sprint(ing))
			}
		}
		if instructions, ok := item["recipeInstructions"]; ok && instructions != nil {
			switch v := instructions.(type) {
			case []any:
				if len(v) > 0 {
					parts = append(parts, "Instructions:")
					for _, step := range v {
						if obj, ok := step.(map[string]any); ok {
							if text, _ := obj["text"].(string); text != "" {
								parts = append(parts, text)
								continue
							}
						}
						parts = append(parts, fmt.Sprint(step))
					}
				}
			case string:
				if v != "" {
					parts = append(parts, "Instructions:", v)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}

// extractTitle tries og:title, twitter:title, <title> and the first <h1>,
// cleaned of site-name suffixes.
func extractTitle(doc *html.Node) string {
	var candidates []string
	for _, meta := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta"
	}) {
		if attr(meta, "property") == "og:title" && attr(meta, "content") != "" {
			candidates = append(candidates, attr(meta, "content"))
		}
	}
	for _, meta := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta"
	}) {
		if attr(meta, "name") == "twitter:title" && attr(meta, "content") != "" {
			candidates = append(candidates, attr(meta, "content"))
		}
	}
	if title := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	}); title != nil {
		candidates = append(candidates, nodeText(title))
	}
	if h1 := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "h1"
	}); h1 != nil {
		candidates = append(candidates, nodeText(h1))
	}

	for _, candidate := range candidates {
		if cleaned := cleanTitle(candidate); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// cleanTitle collapses whitespace and strips site-name suffixes after the
// first separator.
func cleanTitle(raw string) string {
	title := strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), " ")
	for _, separator := range []string{" | ", " - ", " — ", " – "} {
		if strings.Contains(title, separator) {
			for _, part := range strings.Split(title, separator) {
				if part = strings.TrimSpace(part); part != "" {
					return part
				}
			}
		}
	}
	return title
}

// fallbackTitleFromURL derives a readable title from the URL slug.
func fallbackTitleFromURL(rawURL string) string {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	segments := strings.Split(strings.TrimRight(path, "/"), "/")
	slug := segments[len(segments)-1]
	slug = strings.SplitN(slug, "?", 2)[0]
	slug = strings.SplitN(slug, "#", 2)[0]
	slug = strings.ReplaceAll(slug, "_", " ")
	slug = strings.ReplaceAll(slug, "-", " ")
	cleaned := strings.Join(strings.Fields(slug), " ")
	if cleaned == "" {
		return "Recipe URL"
	}
	return cleaned
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func findFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, pred); found != nil {
			return found
		}
	}
	return nil
}

func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return out
}
