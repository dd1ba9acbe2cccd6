package notifier

// TextNotifier is the minimal sink contract; components depend on it rather
// than on a concrete transport.
type TextNotifier interface {
	SendText(text string) error
}

// Sender is the fire-and-forget side used by the engine. Send never blocks on
// the transport and never reports delivery errors.
type Sender interface {
	Send(text string)
}
