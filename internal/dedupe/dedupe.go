package dedupe

// Package dedupe provides shared singleflight groups used to collapse
// concurrent identical read queries. Using a centralized singleflight.Group
// ensures that only one database query runs for a given key while other
// callers wait for the result.

import "golang.org/x/sync/singleflight"

// LeaderboardGroup deduplicates leaderboard queries keyed by the requested
// size (e.g. "top:10").
var LeaderboardGroup singleflight.Group

// StatsGroup deduplicates per-player stats lookups keyed by email
// (e.g. "stats:<email>").
var StatsGroup singleflight.Group
