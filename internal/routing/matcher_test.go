package routing

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantTarget Target
	}{
		{name: "root", path: "/", wantTarget: TargetIndexPage},
		{name: "empty path", path: "", wantTarget: TargetIndexPage},
		{name: "edit video page", path: "/editVideo.html", wantTarget: TargetEditVideoPage},
		{name: "edit video any case", path: "/EDITVIDEO.HTML", wantTarget: TargetEditVideoPage},
		{name: "edit video trailing slash", path: "/editVideo.html/", wantTarget: TargetEditVideoPage},
		{name: "edit video double slash", path: "/editVideo.html//", wantTarget: TargetStatic},
		{name: "index file goes to static", path: "/index.html", wantTarget: TargetStatic},
		{name: "nested edit video", path: "/pages/editVideo.html", wantTarget: TargetStatic},
		{name: "stylesheet", path: "/style.css", wantTarget: TargetStatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if target := Match(tt.path); target != tt.wantTarget {
				t.Fatalf("Match(%q) = %q, want %q", tt.path, target, tt.wantTarget)
			}
		})
	}
}
