package domain

import (
	"sort"
	"strings"
	"time"
)

// Account is the authenticated identity whose archive is being built.
type Account struct {
	ID   string
	Name string
}

// UnknownAccountName is used when the current account cannot be resolved.
const UnknownAccountName = "Unknown"

// Scope is a top-level collection of containers, such as a Discord server.
type Scope struct {
	ID   string
	Name string
}

// Container is a sub-unit of a scope from which items are paginated,
// such as a text channel.
type Container struct {
	ID       string
	Name     string
	Position int
	ScopeID  string
}

// SortContainers orders containers by ascending position.
// Ties keep their discovery order.
func SortContainers(cs []Container) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Position < cs[j].Position
	})
}

// Item is a single message. Immutable once fetched.
type Item struct {
	// ID is orderable by the remote system and used as the pagination cursor.
	ID string

	AuthorID   string
	AuthorName string

	// Body may be empty.
	Body string

	CreatedAt time.Time

	// AttachmentURLs is ordered and possibly empty.
	AttachmentURLs []string
}

// IsEmpty returns true if the item has neither text nor attachments.
func (i Item) IsEmpty() bool {
	return strings.TrimSpace(i.Body) == "" && len(i.AttachmentURLs) == 0
}

// Origin describes where a live message came from.
type Origin string

// Message origins seen on the gateway.
const (
	OriginGuild   Origin = "guild"
	OriginDM      Origin = "dm"
	OriginGroupDM Origin = "group_dm"
	OriginUnknown Origin = "unknown"
)

// LiveMessage is an item received in real time, with enough context
// to place it in the archive without further lookups.
type LiveMessage struct {
	Item          Item
	Origin        Origin
	ScopeName     string
	ContainerID   string
	ContainerName string
}

// ArchiveStats summarises the contents of an archive root.
type ArchiveStats struct {
	Location string
	Exists   bool
	Files    int
	Bytes    int64
}
