package manager

// Sink receives free-form diagnostic notifications. Delivery is best
// effort: Notify has no return value and no failure mode.
type Sink interface {
	Notify(msg string, args ...any)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(msg string, args ...any)

// Notify calls f.
func (f SinkFunc) Notify(msg string, args ...any) {
	f(msg, args...)
}

// NopSink discards every notification.
type NopSink struct{}

// Notify does nothing.
func (NopSink) Notify(string, ...any) {}

// Notify forwards to sink when one is present. Managers accept a nil sink,
// so call sites go through this helper rather than calling sink.Notify.
func Notify(sink Sink, msg string, args ...any) {
	if sink == nil {
		return
	}
	sink.Notify(msg, args...)
}
