package model

import "errors"

// TouhouStatus is the classification state of an archived video.
type TouhouStatus int

const (
	StatusUnchecked        TouhouStatus = 0
	StatusAutoMatch        TouhouStatus = 1
	StatusAutoNoMatch      TouhouStatus = 2
	StatusConfirmedMatch   TouhouStatus = 3
	StatusConfirmedNoMatch TouhouStatus = 4
)

func (s TouhouStatus) IsValid() bool {
	switch s {
	case StatusUnchecked, StatusAutoMatch, StatusAutoNoMatch, StatusConfirmedMatch, StatusConfirmedNoMatch:
		return true
	default:
		return false
	}
}

// IsConfirmed reports whether the status was set by a human reviewer.
// Confirmed statuses are never overwritten by automatic classification.
func (s TouhouStatus) IsConfirmed() bool {
	return s == StatusConfirmedMatch || s == StatusConfirmedNoMatch
}

func (s TouhouStatus) String() string {
	switch s {
	case StatusUnchecked:
		return "UNCHECKED"
	case StatusAutoMatch:
		return "AUTO_MATCH"
	case StatusAutoNoMatch:
		return "AUTO_NO_MATCH"
	case StatusConfirmedMatch:
		return "CONFIRMED_MATCH"
	case StatusConfirmedNoMatch:
		return "CONFIRMED_NO_MATCH"
	default:
		return "UNKNOWN"
	}
}

// Merge resolves the status to store when re-ingesting a video: an automatic
// result never crosses a confirmed boundary.
func (s TouhouStatus) Merge(auto TouhouStatus) TouhouStatus {
	if s.IsConfirmed() {
		return s
	}
	return auto
}

// VideoPart is one segment of a multi-part video.
type VideoPart struct {
	Cid      int64  // platform-wide unique part identifier
	Page     int    // 1-based ordinal within the video
	Part     string // segment label
	Duration int64  // seconds
	Ctime    int64  // unix seconds
}

// Video is a uniquely identified item in an uploader's catalog.
// Aid is the stable numeric identity used for joins; Bvid is the opaque
// shareable identifier. SeasonID is non-zero iff the video belongs to an
// enumerable season ("bundle").
type Video struct {
	Aid          int64
	Bvid         string
	Mid          int64
	Title        string
	Description  string
	Pic          string
	Created      int64 // unix seconds; unified from the API's created/pubdate alias
	SeasonID     int64
	Tags         []string
	Parts        []VideoPart
	TouhouStatus TouhouStatus
}

// Uploader is the unit of crawl scheduling.
type Uploader struct {
	Mid  int64
	Name string
}

var (
	ErrMissingAid  = errors.New("video aid cannot be zero")
	ErrMissingBvid = errors.New("video bvid cannot be empty")
)

// Validate checks the identity fields every persisted video must carry.
func (v *Video) Validate() error {
	if v.Aid == 0 {
		return ErrMissingAid
	}
	if v.Bvid == "" {
		return ErrMissingBvid
	}
	return nil
}
