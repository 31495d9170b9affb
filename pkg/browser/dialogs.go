package browser

import (
	"context"
	"sync/atomic"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"dyscraper/pkg/logger"
)

// dialogDismisser answers alert, confirm and prompt dialogs with "cancel".
// An open dialog blocks script evaluation and input on the tab.
type dialogDismisser struct {
	dismiss func(ev *page.EventJavascriptDialogOpening)
	count   atomic.Int64
	logger  logger.Logger
}

func newDialogDismisser(ctx context.Context, log logger.Logger) *dialogDismisser {
	d := &dialogDismisser{logger: log}
	d.dismiss = func(ev *page.EventJavascriptDialogOpening) {
		if err := chromedp.Run(ctx, page.HandleJavaScriptDialog(false)); err != nil && ctx.Err() == nil {
			d.logger.WithError(err).Warn("failed to dismiss dialog")
		}
	}
	return d
}

// handle is installed with chromedp.ListenTarget. Listeners must not
// block, so the dialog is answered from another goroutine.
func (d *dialogDismisser) handle(ev interface{}) {
	e, ok := ev.(*page.EventJavascriptDialogOpening)
	if !ok {
		return
	}
	d.count.Add(1)
	d.logger.InfoWithFields("Dismissing page dialog", map[string]interface{}{
		"type":    string(e.Type),
		"message": e.Message,
	})
	go d.dismiss(e)
}

// Dismissed returns how many dialogs were answered so far.
func (d *dialogDismisser) Dismissed() int {
	return int(d.count.Load())
}
