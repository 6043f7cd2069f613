package mmds

// Counter names reported to the CounterSink.
const (
	CounterGetCount   = "get_api_requests.mmds_count"
	CounterPutCount   = "put_api_requests.mmds_count"
	CounterPutFails   = "put_api_requests.mmds_fails"
	CounterPatchCount = "patch_api_requests.mmds_count"
	CounterPatchFails = "patch_api_requests.mmds_fails"
)

// CounterNames lists every counter the translator may increment.
func CounterNames() []string {
	return []string{
		CounterGetCount,
		CounterPutCount,
		CounterPutFails,
		CounterPatchCount,
		CounterPatchFails,
	}
}

// CounterSink receives request accounting.
// Implementations must tolerate concurrent Increment calls.
type CounterSink interface {
	Increment(name string)
}

// CounterSinkFunc adapts a function to CounterSink.
type CounterSinkFunc func(name string)

// Increment calls f(name).
func (f CounterSinkFunc) Increment(name string) { f(name) }

type discardSink struct{}

func (discardSink) Increment(string) {}

// Discard is a CounterSink that drops every increment.
var Discard CounterSink = discardSink{}
