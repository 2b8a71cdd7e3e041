package mqtt

import "strings"

// Topics builds the topic names under a configured prefix.
//
//	<prefix>/status   retained online/offline status
//	<prefix>/update   one message per registry change
type Topics struct {
	Prefix string
}

func (t Topics) join(leaf string) string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return leaf
	}
	return p + "/" + leaf
}

// Status returns the retained status topic.
func (t Topics) Status() string { return t.join("status") }

// Update returns the topic parameter changes are published on.
func (t Topics) Update() string { return t.join("update") }
