package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExportGuide writes step-by-step instructions for exporting
// the platform's cookies from a desktop browser.
func ShowCookieExportGuide(w io.Writer) {
	line := strings.Repeat("=", 72)
	p := func(s string) { fmt.Fprintln(w, s) }

	p(line)
	p("DOUYIN COOKIE EXPORT GUIDE")
	p(line)
	p("")
	p("Logged-in cookies let the scraper see the full post list and skip")
	p("the login panel. Export them once and import them with:")
	p("")
	p("    dyscraper cookies import cookies.json --name main")
	p("")
	p("STEP 1: Log in")
	p("   - Open https://www.douyin.com in Chrome, Edge or Firefox")
	p("   - Log in, for example by scanning the QR code with the mobile app")
	p("")
	p("STEP 2: Export the cookies as JSON")
	p("   METHOD A - a cookie export extension (EditThisCookie, Cookie-Editor):")
	p("   1. Click the extension icon while on douyin.com")
	p("   2. Choose Export, format JSON")
	p("   3. Save the clipboard contents as cookies.json")
	p("")
	p("   METHOD B - Developer Tools:")
	p("   1. Press F12 and open the Network tab, then refresh the page")
	p("   2. Click any request to www.douyin.com")
	p("   3. Copy the value of the Cookie request header")
	p("   4. Run: dyscraper cookies set --name main and paste it")
	p("      (or export it as DYSCRAPER_COOKIES)")
	p("")
	p("STEP 3: Check them")
	p("    dyscraper cookies check cookies.json --online")
	p("")
	p("Cookies that matter:")
	p("   sessionid            required, marks the login")
	p("   ttwid, odin_tt       recommended, reduce verification prompts")
	p("   passport_csrf_token  recommended")
	p("")
	p("SECURITY: these cookies give full access to the account. Never share")
	p("them. Stored sessions are kept in the system keychain or an encrypted")
	p("file.")
	p(line)
}

// ShowQuickExportGuide writes a one-paragraph version of the guide.
func ShowQuickExportGuide(w io.Writer) {
	fmt.Fprintln(w, "Cookies: F12 -> Network -> refresh -> any www.douyin.com request -> copy the Cookie header")
	fmt.Fprintln(w, "   Needed: sessionid. Run 'dyscraper cookies guide' for detailed steps.")
}
