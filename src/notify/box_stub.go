//go:build !windows

package notify

// BoxMessenger has no windowing toolkit to lean on here; advisories fall
// back to the log.
type BoxMessenger struct {
	Title string
}

func NewBox() BoxMessenger { return BoxMessenger{Title: "OverlayBox"} }

func (b BoxMessenger) Advise(text string) { LogMessenger{}.Advise(text) }
