// File: internal/browser/snapshot.go
package browser

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrElementNotFound is returned when a locator matches nothing on the page.
var ErrElementNotFound = errors.New("element not found")

const (
	idAttr      = "data-webgym-id"
	visibleAttr = "data-webgym-visible"
	inViewAttr  = "data-webgym-inview"
	valueAttr   = "data-webgym-value"
	checkedAttr = "data-webgym-checked"

	maxNameLength = 100
)

// interactiveSelector lists the elements that get an id in the observation.
const interactiveSelector = "a, button, input, select, textarea, option, summary, img[alt], " +
	"h1, h2, h3, h4, h5, h6, label, [role], [contenteditable='true'], [contenteditable=''], [onclick]"

// annotateScript tags every interactive element with a fresh id and records the
// live state the serialized HTML would otherwise lose. It returns the count.
var annotateScript = fmt.Sprintf(`(() => {
	document.querySelectorAll('[%[1]s]').forEach(el => el.removeAttribute('%[1]s'));
	const vw = window.innerWidth, vh = window.innerHeight;
	let next = 0;
	document.querySelectorAll(%[6]s).forEach(el => {
		el.setAttribute('%[1]s', String(next++));
		const r = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = r.width > 0 && r.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
		const inView = visible && r.bottom > 0 && r.right > 0 && r.top < vh && r.left < vw;
		el.setAttribute('%[2]s', visible ? '1' : '0');
		el.setAttribute('%[3]s', inView ? '1' : '0');
		if (typeof el.value === 'string' && el.tagName !== 'OPTION') el.setAttribute('%[4]s', el.value);
		if (el.tagName === 'OPTION') el.setAttribute('%[5]s', el.selected ? '1' : '0');
		else if ('checked' in el) el.setAttribute('%[5]s', el.checked ? '1' : '0');
	});
	return next;
})()`, idAttr, visibleAttr, inViewAttr, valueAttr, checkedAttr, jsString(interactiveSelector))

// Element is one annotated element of a page snapshot.
type Element struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Value      string `json:"value,omitempty"`
	Checked    string `json:"checked,omitempty"`
	Visible    bool   `json:"visible"`
	InViewport bool   `json:"in_viewport"`
}

// Snapshot is the parsed, annotated HTML of a page.
type Snapshot struct {
	Title    string
	Elements []Element
}

// ParseSnapshot reads the annotated HTML produced after annotateScript ran.
func ParseSnapshot(html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	snap := &Snapshot{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	doc.Find("[" + idAttr + "]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr(idAttr)
		value, _ := s.Attr(valueAttr)
		checked, _ := s.Attr(checkedAttr)
		snap.Elements = append(snap.Elements, Element{
			ID:         id,
			Role:       roleOf(s),
			Name:       nameOf(s),
			Value:      value,
			Checked:    checked,
			Visible:    s.AttrOr(visibleAttr, "1") == "1",
			InViewport: s.AttrOr(inViewAttr, "1") == "1",
		})
	})
	return snap, nil
}

// Get returns the element with id.
func (s *Snapshot) Get(id string) (Element, bool) {
	for _, el := range s.Elements {
		if el.ID == id {
			return el, true
		}
	}
	return Element{}, false
}

// Find returns the nth visible element whose role is role and whose name
// contains name, both compared case-insensitively. An empty name matches any.
func (s *Snapshot) Find(role, name string, nth int) (Element, error) {
	role = strings.ToLower(role)
	name = strings.ToLower(name)
	seen := 0
	for _, el := range s.Elements {
		if !el.Visible || el.Role != role {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(el.Name), name) {
			continue
		}
		if seen == nth {
			return el, nil
		}
		seen++
	}
	return Element{}, fmt.Errorf("%w: role %q name %q nth %d (%d matches)", ErrElementNotFound, role, name, nth, seen)
}

// Text renders the snapshot as one line per visible element, truncated to
// maxLen runes when maxLen is positive.
func (s *Snapshot) Text(viewportOnly bool, maxLen int) string {
	var b strings.Builder
	for _, el := range s.Elements {
		if !el.Visible || (viewportOnly && !el.InViewport) {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s %s", el.ID, el.Role, quote(el.Name))
		if el.Value != "" {
			fmt.Fprintf(&b, " value: %s", quote(el.Value))
		}
		switch el.Checked {
		case "1":
			b.WriteString(" checked: true")
		case "0":
			if el.Role == "checkbox" || el.Role == "radio" || el.Role == "switch" {
				b.WriteString(" checked: false")
			}
		}
		b.WriteByte('\n')
	}
	return truncate(strings.TrimRight(b.String(), "\n"), maxLen)
}

// Selector is the CSS selector of the element annotated with id.
func Selector(id string) string {
	return fmt.Sprintf("[%s=%s]", idAttr, jsString(id))
}

func roleOf(s *goquery.Selection) string {
	if role, ok := s.Attr("role"); ok {
		if fields := strings.Fields(role); len(fields) > 0 {
			return strings.ToLower(fields[0])
		}
	}
	switch goquery.NodeName(s) {
	case "a":
		if s.Is("[href]") {
			return "link"
		}
		return "generic"
	case "button", "summary":
		return "button"
	case "input":
		return inputRole(strings.ToLower(s.AttrOr("type", "text")))
	case "select":
		if s.Is("[multiple]") {
			return "listbox"
		}
		return "combobox"
	case "option":
		return "option"
	case "textarea":
		return "textbox"
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "img":
		return "img"
	}
	if s.Is("[contenteditable]") {
		return "textbox"
	}
	return "generic"
}

func inputRole(kind string) string {
	switch kind {
	case "checkbox":
		return "checkbox"
	case "radio":
		return "radio"
	case "button", "submit", "reset", "image":
		return "button"
	case "range":
		return "slider"
	case "number":
		return "spinbutton"
	case "search":
		return "searchbox"
	default:
		return "textbox"
	}
}

// nameOf approximates the accessible name.
func nameOf(s *goquery.Selection) string {
	for _, attr := range []string{"aria-label", "alt", "title"} {
		if v := collapse(s.AttrOr(attr, "")); v != "" {
			return clip(v)
		}
	}
	if goquery.NodeName(s) == "input" {
		switch strings.ToLower(s.AttrOr("type", "text")) {
		case "button", "submit", "reset":
			if v := collapse(s.AttrOr("value", "")); v != "" {
				return clip(v)
			}
		}
		return clip(collapse(s.AttrOr("placeholder", "")))
	}
	if goquery.NodeName(s) == "select" {
		return clip(collapse(s.AttrOr("name", "")))
	}
	if text := collapse(s.Text()); text != "" {
		return clip(text)
	}
	return clip(collapse(s.AttrOr("placeholder", "")))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string) string {
	return truncate(s, maxNameLength)
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
