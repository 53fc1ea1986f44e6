package linksync

import "github.com/hashpad-dev/hashpad/pkg/codec"

// LoadResult is the outcome of a Load transition.
type LoadResult uint8

const (
	// LoadEmpty means the URL carried no fragment content.
	LoadEmpty LoadResult = iota

	// LoadDecoded means the fragment decoded into the editor text.
	LoadDecoded

	// LoadInvalid means the fragment failed to decode and was cleared.
	LoadInvalid
)

// String returns the string representation of the result.
func (r LoadResult) String() string {
	switch r {
	case LoadEmpty:
		return "empty"
	case LoadDecoded:
		return "decoded"
	case LoadInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Observer receives controller events for metrics.
// Methods are called on the host loop and must not block.
type Observer interface {
	Loaded(result LoadResult)
	DecodeFailed(reason codec.Reason)
	Written(tokenLen int)
	WriteSuppressed()
	Cleared()
}

type nopObserver struct{}

func (nopObserver) Loaded(LoadResult)         {}
func (nopObserver) DecodeFailed(codec.Reason) {}
func (nopObserver) Written(int)               {}
func (nopObserver) WriteSuppressed()          {}
func (nopObserver) Cleared()                  {}
