package service

import (
	"fmt"

	"github.com/Noquela/duat-server/internal/dedupe"
	"github.com/Noquela/duat-server/internal/game"
)

// Leaderboard returns the top player profiles. Concurrent identical
// queries collapse into one database read through the shared singleflight
// group.
func Leaderboard(repo interface {
	GetTopPlayers(limit int) ([]game.PlayerProfile, error)
}, limit int) ([]game.PlayerProfile, error) {
	v, err, _ := dedupe.LeaderboardGroup.Do(fmt.Sprintf("top:%d", limit), func() (interface{}, error) {
		return repo.GetTopPlayers(limit)
	})
	if err != nil {
		return nil, err
	}
	return v.([]game.PlayerProfile), nil
}

// PlayerStats returns the aggregate profile for one player.
func PlayerStats(repo interface {
	GetStatsByEmail(email string) (*game.PlayerProfile, error)
}, email string) (*game.PlayerProfile, error) {
	v, err, _ := dedupe.StatsGroup.Do("stats:"+email, func() (interface{}, error) {
		return repo.GetStatsByEmail(email)
	})
	if err != nil {
		return nil, err
	}
	return v.(*game.PlayerProfile), nil
}
