package tgCallback

// Callback button uniques. Payloads travel in the button data.
const (
	ShowClass     string = "show_class"     // payload: asset class, empty for the overview
	Refresh       string = "refresh"        // refresh and redraw the current view
	ConfirmRemove string = "confirm_remove" // payload: asset id
	CancelRemove  string = "cancel_remove"
)
