package learner

import (
	"regexp"
	"strings"
)

var emailInBrackets = regexp.MustCompile(`<(.+)>`)

// LearnerID is the composite identity stored on a submission.
func LearnerID(name, email string) string {
	return name + " <" + email + ">"
}

// ParseLearnerID splits a composite identity. Without a bracketed email the
// whole string is the name.
func ParseLearnerID(id string) (name, email string) {
	m := emailInBrackets.FindStringSubmatch(id)
	if m == nil {
		return id, ""
	}
	return strings.TrimSpace(id[:strings.IndexByte(id, '<')]), m[1]
}
