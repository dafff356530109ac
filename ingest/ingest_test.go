package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromText(t *testing.T) {
	in, err := FromText("My Soup", "  Simmer the tomatoes.  ")
	require.NoError(t, err)
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, "My Soup", in.Name)
	assert.Equal(t, SourcePasted, in.Source)
	assert.Equal(t, "Simmer the tomatoes.", in.Text)

	in, err = FromText("", "text")
	require.NoError(t, err)
	assert.Equal(t, "Pasted recipe", in.Name)

	_, err = FromText("x", "   ")
	require.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tomato-soup.txt")
	require.NoError(t, os.WriteFile(path, []byte("Simmer tomatoes.\n"), 0o644))

	in, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tomato-soup", in.Name)
	assert.Equal(t, SourceFile, in.Source)
	assert.Equal(t, "Simmer tomatoes.", in.Text)
}

func TestFromFileRejections(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "recipe.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	_, err := FromFile(pdf)
	require.Error(t, err)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "only .txt is accepted")

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0o644))
	_, err = FromFile(empty)
	require.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}

const jsonLDPage = `<!DOCTYPE html>
<html><head>
<title>Tomato Soup Recipe | Cooking Site</title>
<meta property="og:title" content="Tomato Soup | Cooking Site">
<script type="application/ld+json">
{
  "@type": "Recipe",
  "name": "Tomato Soup",
  "description": "A warming classic.",
  "recipeIngredient": ["400 g tomatoes", "1 onion"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Chop the onion."},
    {"@type": "HowToStep", "text": "Simmer everything."}
  ]
}
</script>
</head><body><article>Some unrelated page text.</article></body></html>`

func TestFromURLPrefersJSONLD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(jsonLDPage))
	}))
	defer srv.Close()

	in, err := NewFetcher(srv.Client()).FromURL(context.Background(), srv.URL+"/tomato-soup")
	require.NoError(t, err)
	assert.Equal(t, SourceURL, in.Source)
	assert.Equal(t, "Tomato Soup", in.Name, "og:title wins, site suffix stripped")
	assert.Contains(t, in.Text, "Tomato Soup")
	assert.Contains(t, in.Text, "Ingredients:")
	assert.Contains(t, in.Text, "400 g tomatoes")
	assert.Contains(t, in.Text, "Instructions:")
	assert.Contains(t, in.Text, "Simmer everything.")
	assert.NotContains(t, in.Text, "unrelated page text")
}

func TestFromURLFallsBackToArticleText(t *testing.T) {
	page := `<html><head><title>Grandma's Stew - Food Blog</title></head>
<body><nav>menu</nav><article>Brown the beef. <b>Add</b> carrots and simmer.</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	in, err := NewFetcher(srv.Client()).FromURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Grandma's Stew", in.Name)
	assert.Equal(t, "Brown the beef. Add carrots and simmer.", in.Text)
	assert.NotContains(t, in.Text, "menu", "navigation outside the article is ignored")
}

func TestFromURLCapsFallbackText(t *testing.T) {
	page := "<html><body><article>" + strings.Repeat("stir ", 3000) + "</article></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	in, err := NewFetcher(srv.Client()).FromURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(in.Text), maxFallbackChars)
}

func TestFromURLSlugTitleFallback(t *testing.T) {
	page := `<html><body><article>Simmer the tomatoes until soft.</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	in, err := NewFetcher(srv.Client()).FromURL(context.Background(), srv.URL+"/recipes/creamy-tomato_soup?ref=home")
	require.NoError(t, err)
	assert.Equal(t, "creamy tomato soup", in.Name)
}

func TestFromURLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client()).FromURL(context.Background(), srv.URL)
	require.Error(t, err)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Error(), "unexpected status 404")
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Tomato Soup | Cooking Site", "Tomato Soup"},
		{"Tomato Soup - The Best Blog", "Tomato Soup"},
		{"  Tomato   Soup  ", "Tomato Soup"},
		{"tomato_soup", "tomato soup"},
		{"Plain Title", "Plain Title"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanTitle(tt.in), tt.in)
	}
}
