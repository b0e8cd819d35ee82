package domain

// Category is the classification bucket assigned to every archived item.
// The set is closed: extending it means updating the local rule table
// and the remote classifier prompt together.
type Category string

// The eight categories.
const (
	CategoryImages        Category = "Images"
	CategoryVideos        Category = "Videos"
	CategoryCommands      Category = "Commands"
	CategoryPersonalInfo  Category = "PersonalInfo"
	CategoryInappropriate Category = "Inappropriate"
	CategoryLinks         Category = "Links"
	CategoryFiles         Category = "Files"
	CategoryConversations Category = "Conversations"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryImages,
		CategoryVideos,
		CategoryCommands,
		CategoryPersonalInfo,
		CategoryInappropriate,
		CategoryLinks,
		CategoryFiles,
		CategoryConversations,
	}
}

// IsValid returns true if the category is one of the eight.
func (c Category) IsValid() bool {
	switch c {
	case CategoryImages, CategoryVideos, CategoryCommands, CategoryPersonalInfo,
		CategoryInappropriate, CategoryLinks, CategoryFiles, CategoryConversations:
		return true
	default:
		return false
	}
}

// String returns the string representation.
// It is also the category's directory name in the archive.
func (c Category) String() string {
	return string(c)
}

// Description returns a human-readable description of the category.
func (c Category) Description() string {
	switch c {
	case CategoryImages:
		return "Image attachments and image links"
	case CategoryVideos:
		return "Video attachments and video links"
	case CategoryCommands:
		return "Bot commands, bot replies and shop/game output"
	case CategoryPersonalInfo:
		return "Self-disclosed emails, phone numbers, addresses, credentials"
	case CategoryInappropriate:
		return "Direct insults, harassment, threats, explicit content"
	case CategoryLinks:
		return "Messages containing web links"
	case CategoryFiles:
		return "Document and archive attachments"
	case CategoryConversations:
		return "Everything else"
	default:
		return "Unknown"
	}
}

// Icon returns a short glyph used by the terminal UIs.
func (c Category) Icon() string {
	switch c {
	case CategoryImages:
		return "🖼"
	case CategoryVideos:
		return "🎬"
	case CategoryCommands:
		return "⌘"
	case CategoryPersonalInfo:
		return "🔒"
	case CategoryInappropriate:
		return "⚠"
	case CategoryLinks:
		return "🔗"
	case CategoryFiles:
		return "📄"
	default:
		return "💬"
	}
}

// CategoryCounts tallies items per category.
type CategoryCounts map[Category]int

// NewCategoryCounts returns counts with every category present at zero.
func NewCategoryCounts() CategoryCounts {
	counts := make(CategoryCounts, len(AllCategories()))
	for _, c := range AllCategories() {
		counts[c] = 0
	}
	return counts
}

// Total returns the sum of all counts.
func (c CategoryCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Clone returns an independent copy.
func (c CategoryCounts) Clone() CategoryCounts {
	out := make(CategoryCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Add merges other into c.
func (c CategoryCounts) Add(other CategoryCounts) {
	for k, v := range other {
		c[k] += v
	}
}
