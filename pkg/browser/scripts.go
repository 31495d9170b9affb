package browser

import (
	"encoding/json"
	"fmt"
)

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// withItems wraps body in a function that has the container node bound to
// c and a helper items() listing its top-level <li> elements.
func withItems(xpath, body string) string {
	return fmt.Sprintf(`(function () {
  const c = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
  const items = () => Array.from(c.querySelectorAll("li")).filter(li => {
    const outer = li.parentElement ? li.parentElement.closest("li") : null;
    return !outer || !c.contains(outer);
  });
  %s
})()`, jsString(xpath), body)
}

func containerHTMLScript(xpath string) string {
	return withItems(xpath, `return c ? c.outerHTML : "";`)
}

func itemCountScript(xpath string) string {
	return withItems(xpath, `return c ? items().length : -1;`)
}

// hoverPointsScript scrolls item index into view and returns the centres
// of its first n visible descendants, or the item's own centre when none
// has a size.
func hoverPointsScript(xpath string, index, n int) string {
	return withItems(xpath, fmt.Sprintf(`if (!c) return [];
  const li = items()[%d];
  if (!li) return [];
  li.scrollIntoView({block: "center"});
  const centre = el => {
    const r = el.getBoundingClientRect();
    return {x: r.left + r.width / 2, y: r.top + r.height / 2, w: r.width, h: r.height};
  };
  let pts = Array.from(li.querySelectorAll("*")).slice(0, %d).map(centre).filter(p => p.w > 0 && p.h > 0);
  if (pts.length === 0) pts = [centre(li)];
  return pts;`, index, n))
}

func elementPresentScript(id string) string {
	return fmt.Sprintf(`!!document.getElementById(%s)`, jsString(id))
}

const scrollToBottomScript = `window.scrollTo(0, document.body.scrollHeight)`

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
