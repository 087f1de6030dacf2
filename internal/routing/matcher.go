package routing

import "strings"

// Target identifies which response a request path resolves to.
type Target string

const (
	TargetIndexPage     Target = "index"
	TargetEditVideoPage Target = "edit-video"
	TargetStatic        Target = "static"
)

const (
	IndexRoute     = "/"
	EditVideoRoute = "/editVideo.html"
)

// Match resolves an incoming path to a target. Page routes ignore case and a
// single trailing slash; everything else goes to the static mount.
func Match(path string) Target {
	switch {
	case path == IndexRoute || path == "":
		return TargetIndexPage
	case matchRoute(path, EditVideoRoute):
		return TargetEditVideoPage
	default:
		return TargetStatic
	}
}

func matchRoute(path, route string) bool {
	if strings.EqualFold(path, route) {
		return true
	}
	return strings.HasSuffix(path, "/") && strings.EqualFold(strings.TrimSuffix(path, "/"), route)
}
