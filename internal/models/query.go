package models

// Window is an offset/limit slice of an ordered result.
type Window struct {
	Offset int
	Limit  int
}

// VideoSort names a sortable video column.
type VideoSort string

const (
	SortCreatedAt VideoSort = "createdAt"
	SortViews     VideoSort = "views"
	SortDuration  VideoSort = "duration"
	SortTitle     VideoSort = "title"
)

// VideoQuery filters and orders a video listing.
type VideoQuery struct {
	OwnerID            string
	TitleContains      string
	SortBy             VideoSort
	Descending         bool
	IncludeUnpublished bool
	Window             Window
}

// ChannelStats aggregates a channel's dashboard totals.
type ChannelStats struct {
	TotalViews       int64
	TotalLikes       int64
	TotalSubscribers int64
	TotalVideos      int64
}
