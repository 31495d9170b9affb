package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dyscraper/pkg/logger"
)

func TestDialogDismisserAnswersDialogs(t *testing.T) {
	answered := make(chan string, 4)
	d := &dialogDismisser{logger: logger.NewNopLogger()}
	d.dismiss = func(ev *page.EventJavascriptDialogOpening) {
		answered <- ev.Message
	}

	d.handle(responseEvent("1", "https://a.test/one"))
	d.handle(&network.EventRequestWillBeSent{})
	d.handle(&page.EventJavascriptDialogOpening{Type: page.DialogTypeAlert, Message: "login required"})
	d.handle(&page.EventJavascriptDialogOpening{Type: page.DialogTypeConfirm, Message: "leave page?"})

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-answered:
			got[msg] = true
		case <-time.After(time.Second):
			require.FailNow(t, "dialog was not answered")
		}
	}
	assert.Equal(t, map[string]bool{"login required": true, "leave page?": true}, got)
	assert.Equal(t, 2, d.Dismissed())
}
