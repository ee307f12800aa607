package engine

import "github.com/noah-isme/lostfound-api/internal/dto"

// RenderAction is what the chat view must do with a fetched message list.
type RenderAction int

const (
	// RenderNone leaves the view untouched.
	RenderNone RenderAction = iota
	// RenderAppend appends the new suffix.
	RenderAppend
	// RenderFull replaces everything.
	RenderFull
)

func (a RenderAction) String() string {
	switch a {
	case RenderNone:
		return "none"
	case RenderAppend:
		return "append"
	default:
		return "full"
	}
}

// PlanRender compares the rendered list with a freshly fetched one. The
// returned slice is what to draw: the suffix for RenderAppend, the whole
// list for RenderFull.
func PlanRender(local, incoming []dto.ChatMessageResponse, loaded bool) (RenderAction, []dto.ChatMessageResponse) {
	if !loaded {
		return RenderFull, incoming
	}
	if len(local) == len(incoming) {
		if len(local) == 0 || local[len(local)-1].ID == incoming[len(incoming)-1].ID {
			return RenderNone, nil
		}
		return RenderFull, incoming
	}
	if len(local) > 0 && len(incoming) > len(local) && hasPrefix(incoming, local) {
		return RenderAppend, incoming[len(local):]
	}
	return RenderFull, incoming
}

func hasPrefix(list, prefix []dto.ChatMessageResponse) bool {
	for i := range prefix {
		if list[i].ID != prefix[i].ID {
			return false
		}
	}
	return true
}
