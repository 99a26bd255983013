package utils

import (
	"net/url"
)

// FallbackAvatarURL builds the generated-avatar URL used whenever a user has
// no uploaded profile image.
func FallbackAvatarURL(name string) string {
	if name == "" {
		name = "User"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
