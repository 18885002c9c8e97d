// Package faq extracts question/answer pairs from HTML FAQ pages.
//
// Two markups are recognised:
//
//	<dl><dt>question</dt><dd>answer</dd>...</dl>
//	<details><summary>question</summary>answer</details>
//
// Consecutive <dd> elements after one <dt> are joined into a single answer.
package faq

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

// Parse reads an HTML document and returns its question/answer pairs in
// document order. source is copied onto every pair.
func Parse(r io.Reader, source string) ([]corpus.Pair, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var pairs []corpus.Pair
	add := func(q, a string) {
		if q == "" || a == "" {
			return
		}
		pairs = append(pairs, corpus.Pair{Input: q, Output: a, Source: source})
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Dl:
				for _, qa := range definitionPairs(n) {
					add(qa[0], qa[1])
				}
				return
			case atom.Details:
				q, a := detailsPair(n)
				add(q, a)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return pairs, nil
}

// ParseFile parses the HTML file at path, using the file name as source.
func ParseFile(path string) ([]corpus.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pairs, err := Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no question/answer pairs found in %s", internalerr.ErrInvalidInput, path)
	}
	return pairs, nil
}

func definitionPairs(dl *html.Node) [][2]string {
	var (
		out      [][2]string
		question string
		answers  []string
	)
	flush := func() {
		if question != "" && len(answers) > 0 {
			out = append(out, [2]string{question, strings.Join(answers, " ")})
		}
		question, answers = "", nil
	}

	for _, c := range childElements(dl) {
		switch c.DataAtom {
		case atom.Dt:
			flush()
			question = corpus.TextContent(c)
		case atom.Dd:
			if text := corpus.TextContent(c); text != "" {
				answers = append(answers, text)
			}
		}
	}
	flush()
	return out
}

func detailsPair(details *html.Node) (string, string) {
	var (
		question string
		answer   strings.Builder
	)
	for c := details.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Summary && question == "" {
			question = corpus.TextContent(c)
			continue
		}
		if text := corpus.TextContent(c); text != "" {
			if answer.Len() > 0 {
				answer.WriteByte(' ')
			}
			answer.WriteString(text)
		}
	}
	return question, answer.String()
}

// childElements returns the element children of n, looking through <div>
// wrappers that some pages put around dt/dd groups.
func childElements(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Div {
			out = append(out, childElements(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}
