package bus

import (
	"fmt"
	"strings"
)

// Topic is a named, project-scoped delivery channel between stages.
// Topics are addressed externally by fully-qualified paths
// ("projects/<id>/topics/<name>") and internally by the equivalent
// dotted NATS subject.
type Topic struct {
	Project string
	Name    string
}

// Path returns the fully-qualified topic path.
func (t Topic) Path() string {
	return fmt.Sprintf("projects/%s/topics/%s", t.Project, t.Name)
}

// Subject returns the NATS subject the topic maps to.
func (t Topic) Subject() string {
	return fmt.Sprintf("projects.%s.topics.%s", t.Project, t.Name)
}

// ParseTopicPath splits a fully-qualified topic path into a Topic.
// Returns false when the value is not of the projects/<id>/topics/<name>
// form (e.g. a bare topic name).
func ParseTopicPath(value string) (Topic, bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "projects/") || !strings.Contains(value, "/topics/") {
		return Topic{}, false
	}

	rest := strings.TrimPrefix(value, "projects/")
	parts := strings.SplitN(rest, "/topics/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Topic{}, false
	}
	return Topic{Project: parts[0], Name: parts[1]}, true
}
