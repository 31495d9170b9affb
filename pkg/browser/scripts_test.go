package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptsQuoteXPath(t *testing.T) {
	xp := `//div[@class="list"]`
	s := containerHTMLScript(xp)
	assert.Contains(t, s, `"//div[@class=\"list\"]"`)
	assert.Contains(t, s, "outerHTML")

	assert.Contains(t, itemCountScript(xp), "items().length : -1")

	h := hoverPointsScript(xp, 3, 5)
	assert.Contains(t, h, "items()[3]")
	assert.Contains(t, h, "slice(0, 5)")
	assert.Contains(t, h, "scrollIntoView")
}

func TestElementPresentScript(t *testing.T) {
	assert.Equal(t, `!!document.getElementById("douyin-login-new-id")`, elementPresentScript("douyin-login-new-id"))
}
