package posts

import (
	"sort"

	"github.com/adevav/adevav-api/internal/policy"
)

// CanView answers whether the viewer may see the post. Anonymous viewers only
// see Public posts. Authenticated viewers see their own posts, plus any post
// whose visibility ranks at or below their role. Private ranks above every
// role, so ownership is the only path to a Private post.
func CanView(viewer policy.Identity, post *Post) bool {
	if viewer.Anonymous() {
		return post.Visibility == policy.Public
	}
	return viewer.Owns(post.AuthorID) || viewer.Role.AtLeast(post.Visibility)
}

// VisibleLevels lists the visibility levels the viewer's role can reach by
// rank, always including Public and never Private.
func VisibleLevels(viewer policy.Identity) []policy.Role {
	levels := []policy.Role{policy.Public}
	if viewer.Anonymous() {
		return levels
	}
	for _, level := range []policy.Role{policy.Subscriber, policy.Contributor, policy.Author, policy.Editor, policy.Administrator} {
		if viewer.Role.AtLeast(level) {
			levels = append(levels, level)
		}
	}
	return levels
}

// FilterVisible computes the list a viewer is served: the ranked visible set
// (published-only for anonymous viewers) merged with the viewer's own Private
// posts, ordered by slug. The ranked set is strictly rank-based; ownership
// only reaches Private posts, matching the list query the repository runs.
func FilterVisible(viewer policy.Identity, items []Post) []Post {
	var visible []Post
	for i := range items {
		post := &items[i]
		switch {
		case viewer.Anonymous():
			if post.Visibility == policy.Public && post.Status == StatusPublished {
				visible = append(visible, *post)
			}
		case post.Visibility == policy.Private:
			if viewer.Owns(post.AuthorID) {
				visible = append(visible, *post)
			}
		case viewer.Role.AtLeast(post.Visibility):
			visible = append(visible, *post)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].Slug < visible[j].Slug })
	return visible
}
