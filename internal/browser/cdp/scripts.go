package cdp

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// resolveJS defines __resolve(sel), which accepts CSS selectors and XPath
// expressions. XPath expressions start with '/' or '('.
const resolveJS = `const __resolve = (sel) => {
	if (sel.startsWith("/") || sel.startsWith("(")) {
		return document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	}
	return document.querySelector(sel);
};`

// withElement wraps body in an IIFE where el is the resolved element. The
// script returns null when nothing matches.
func withElement(selector, body string) string {
	encoded, _ := json.MarshalToString(selector)
	return fmt.Sprintf(`(() => {
	%s
	const el = __resolve(%s);
	if (!el) return null;
	%s
})()`, resolveJS, encoded, body)
}

// boxScript returns the element's viewport rectangle after scrolling it into
// view, or null when the element is missing or not rendered.
func boxScript(selector string) string {
	return withElement(selector, `el.scrollIntoView({block: "center", inline: "center"});
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	if (rect.width <= 0 || rect.height <= 0 || style.display === "none" || style.visibility === "hidden") return null;
	return {x: rect.left, y: rect.top, width: rect.width, height: rect.height};`)
}

// focusScript focuses the element and reports true, or null when missing.
func focusScript(selector string) string {
	return withElement(selector, `el.focus();
	try {
		el.setSelectionRange(el.value.length, el.value.length);
	} catch (e) {}
	return true;`)
}

// textScript returns the element's rendered text, falling back to its text
// content for nodes without layout.
func textScript(selector string) string {
	return withElement(selector, `const text = (typeof el.innerText === "string") ? el.innerText : el.textContent;
	return (text || "").trim();`)
}

const (
	scrollHeightScript = `Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight)`
	viewportScript     = `window.innerHeight`
	readyStateScript   = `document.readyState === "complete"`
)

func scrollToScript(y float64) string {
	return fmt.Sprintf(`window.scrollTo({top: %g, behavior: "smooth"})`, y)
}
