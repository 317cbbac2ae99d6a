package snapshot

// Snapshot is the fully normalized result of one scan cycle. A new snapshot
// always replaces the previous one wholesale; derived views are recomputed,
// never merged across fetches.
type Snapshot struct {
	Epoch       int64            `json:"epoch"`
	Threshold   float64          `json:"threshold"`
	Counts      Counts           `json:"counts"`
	Note        string           `json:"note"`
	Timestamp   string           `json:"timestamp"`
	Session     Session          `json:"session"`
	Leaderboard GradeLeaderboard `json:"gradeLeaderboard"`
	Progress    Progress         `json:"progress"`
}

// Counts aggregates scan-wide counters.
type Counts struct {
	AuthorsOverThreshold int64 `json:"authorsOverThreshold"`
	TotalExtraFlips      int64 `json:"totalExtraFlips"`
	FlipsSeen            int64 `json:"flipsSeen"`
	UniqueAuthors        int64 `json:"uniqueAuthors"`
}

// Session carries upcoming validation session metadata.
type Session struct {
	NextValidationTime string `json:"nextValidationTime,omitempty"`
}

// GradeLeaderboard holds the ranked identities and flips for one epoch.
// IdentityLookup is a superset of TopIdentities used for full-rank search;
// when the source provides none it mirrors TopIdentities.
type GradeLeaderboard struct {
	Epoch                     int64         `json:"epoch"`
	TopLimit                  int           `json:"topLimit"`
	TopFlipsLimit             int           `json:"topFlipsLimit"`
	ExcludedWrongWordsAuthors int           `json:"excludedWrongWordsAuthorsCount"`
	StatusFilters             []string      `json:"statusFilters,omitempty"`
	TopIdentities             []IdentityRow `json:"topIdentities"`
	IdentityLookup            []IdentityRow `json:"identityLookup"`
	TopFlips                  []FlipRow     `json:"topFlips"`
}

// IdentityRow is one ranked network participant. Addresses are stored
// lowercase; rank 1 is best and unique within a snapshot.
type IdentityRow struct {
	Rank              int     `json:"rank"`
	Address           string  `json:"address"`
	TotalGradeScore   float64 `json:"totalGradeScore"`
	FlipCount         int     `json:"flipCount"`
	AvgGradeScore     float64 `json:"avgGradeScore"`
	MaxFlipGradeScore float64 `json:"maxFlipGradeScore"`
	ScanURL           string  `json:"scanUrl,omitempty"`
}

// FlipRow is one graded submission. AuthorRank is a by-value back reference
// into the identity leaderboard; nil when the author is unranked there.
type FlipRow struct {
	Rank          int     `json:"rank"`
	CID           string  `json:"cid"`
	Author        string  `json:"author"`
	AuthorRank    *int    `json:"authorRank,omitempty"`
	GradeScore    float64 `json:"gradeScore"`
	Status        string  `json:"status"`
	Word1         string  `json:"word1,omitempty"`
	Word2         string  `json:"word2,omitempty"`
	ScanURL       string  `json:"scanUrl,omitempty"`
	AuthorScanURL string  `json:"authorScanUrl,omitempty"`
}

// Progress bundles the refresh contract and the per-epoch point series.
type Progress struct {
	CacheUsed               bool     `json:"cacheUsed"`
	MinRefreshSeconds       int      `json:"minRefreshSeconds"`
	SecondsUntilNextRefresh int      `json:"secondsUntilNextRefresh"`
	NextRefreshAt           string   `json:"nextRefreshAt,omitempty"`
	Current                 Series   `json:"currentEpoch"`
	Previous                []Series `json:"previousEpochs"`
}

// Series is the ordered sample sequence for one epoch. Points are assumed
// chronologically non-decreasing but are never re-sorted here.
type Series struct {
	Epoch  int64   `json:"epoch"`
	Points []Point `json:"points"`
}

// Point is one timestamped progress sample.
type Point struct {
	Timestamp     string `json:"timestamp"`
	FlipsSeen     int64  `json:"flipsSeen"`
	UniqueAuthors int64  `json:"uniqueAuthors"`
}
