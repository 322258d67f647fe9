package toolkit

import (
	"golang.org/x/oauth2"

	"github.com/syncwise-ai/syncwise/pkg/store"
	"github.com/syncwise-ai/syncwise/pkg/vector"
)

// Deps carries the shared backends tools draw on. Meetings and Index are
// required; Embedder and GoogleOAuth may be nil, disabling transcript
// search and calendar tools respectively.
type Deps struct {
	Meetings    store.MeetingStore
	Index       vector.Index
	Embedder    vector.Embedder
	GoogleOAuth *oauth2.Config
}
