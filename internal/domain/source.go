package domain

// Source identifies which feed input a TVItem came from.
type Source string

const (
	SourcePaired  Source = "paired"  // coins paired with the DAO token
	SourceProfile Source = "profile" // DAO profile content
	SourceCreator Source = "creator" // coins created by qualified creators
	SourceSocial  Source = "social"  // aggregator items
	SourceDrops   Source = "drops"   // drop announcements
)

// SourcePriority lists sources from highest to lowest admission priority.
// Earlier sources win de-duplication.
var SourcePriority = []Source{
	SourcePaired,
	SourceProfile,
	SourceCreator,
	SourceSocial,
	SourceDrops,
}

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// Priority returns the admission rank of s (0 is highest), or -1 if unknown.
func (s Source) Priority() int {
	for i, p := range SourcePriority {
		if p == s {
			return i
		}
	}
	return -1
}
