package leaderboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rideon/rideon/internal/database"
	"github.com/rideon/rideon/internal/mileage"
)

// Sort keys and scopes accepted by the aggregator.
const (
	SortTotalMiles  = "totalMiles"
	SortTotalRides  = "totalRides"
	SortWeeklyMiles = "weeklyMiles"

	ScopeTeams       = "teams"
	ScopeIndividuals = "individuals"
)

// Fetch bounds. Standings are capped to avoid unbounded scans; the weekly
// stat joins carry slightly larger caps because several weeks' worth of
// riders can share one stats collection.
const (
	teamLimit           = 50
	individualLimit     = 50
	weeklyTeamStatLimit = 100
	weeklyUserStatLimit = 200
)

// ErrUnknownSortKey rejects sort keys outside the supported set.
var ErrUnknownSortKey = errors.New("unknown leaderboard sort key")

// TeamEntry is one row of the team standings. Rank is purely positional:
// index+1 in the sorted result, ties kept in fetch order.
type TeamEntry struct {
	Rank                  int     `json:"rank"`
	TeamID                string  `json:"teamId"`
	Name                  string  `json:"name"`
	MemberCount           int64   `json:"memberCount"`
	TotalMiles            float64 `json:"totalMiles"`
	TotalRides            int64   `json:"totalRides"`
	WeeklyMiles           float64 `json:"weeklyMiles"`
	AverageMilesPerMember float64 `json:"averageMilesPerMember"`
}

// IndividualEntry is one row of the rider standings.
type IndividualEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	UserName    string  `json:"userName"`
	TeamName    string  `json:"teamName,omitempty"`
	TotalMiles  float64 `json:"totalMiles"`
	TotalRides  int64   `json:"totalRides"`
	WeeklyMiles float64 `json:"weeklyMiles"`
}

// Aggregator reads the denormalized totals and, for the weekly view, joins
// the precomputed weekly-stat rows onto the base entity lists before sorting
// in memory.
type Aggregator struct {
	db *database.Service

	// Now is injectable so tests can pin the current week.
	Now func() time.Time
}

// NewAggregator creates an aggregator over the given database service.
func NewAggregator(db *database.Service) *Aggregator {
	return &Aggregator{db: db, Now: time.Now}
}

// Teams returns the team standings for the given sort key. Teams with no
// members are excluded as inactive.
func (a *Aggregator) Teams(sortKey string) ([]*TeamEntry, error) {
	var teams []*database.Team
	var err error

	switch sortKey {
	case SortTotalMiles, SortTotalRides:
		teams, err = a.db.GetTopTeams(a.db.GetDB(), sortKey, teamLimit)
	case SortWeeklyMiles:
		teams, err = a.db.GetTeams(a.db.GetDB(), teamLimit)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSortKey, sortKey)
	}
	if err != nil {
		return nil, err
	}

	weekly := map[string]float64{}
	if sortKey == SortWeeklyMiles {
		weekID := mileage.WeekID(a.Now())
		stats, err := a.db.GetWeeklyTeamStats(a.db.GetDB(), weekID, weeklyTeamStatLimit)
		if err != nil {
			return nil, err
		}
		for _, stat := range stats {
			weekly[stat.TeamID] = stat.WeeklyMiles
		}
	}

	entries := make([]*TeamEntry, 0, len(teams))
	for _, team := range teams {
		entry := &TeamEntry{
			TeamID:      team.ID,
			Name:        team.Name,
			MemberCount: team.MemberCount,
			TotalMiles:  team.TotalMiles,
			TotalRides:  team.TotalRides,
			WeeklyMiles: weekly[team.ID], // defaults to 0 when no stat row exists
		}

		// The per-member average is display-only and recomputed on every
		// read; it is never stored.
		if team.MemberCount > 0 {
			base := team.TotalMiles
			if sortKey == SortWeeklyMiles {
				base = entry.WeeklyMiles
			}
			entry.AverageMilesPerMember = round1(base / float64(team.MemberCount))
		}

		entries = append(entries, entry)
	}

	if sortKey == SortWeeklyMiles {
		// Stable sort: zero-value ties keep store-return order.
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].WeeklyMiles > entries[j].WeeklyMiles
		})
	}

	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

// Individuals returns the rider standings for the given sort key.
func (a *Aggregator) Individuals(sortKey string) ([]*IndividualEntry, error) {
	var users []*database.UserProfile
	var err error

	switch sortKey {
	case SortTotalMiles, SortTotalRides:
		users, err = a.db.GetTopUsers(a.db.GetDB(), sortKey, individualLimit)
	case SortWeeklyMiles:
		users, err = a.db.GetUsers(a.db.GetDB(), individualLimit)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSortKey, sortKey)
	}
	if err != nil {
		return nil, err
	}

	weekly := map[string]float64{}
	if sortKey == SortWeeklyMiles {
		weekID := mileage.WeekID(a.Now())
		stats, err := a.db.GetWeeklyUserStats(a.db.GetDB(), weekID, weeklyUserStatLimit)
		if err != nil {
			return nil, err
		}
		for _, stat := range stats {
			weekly[stat.UserID] = stat.WeeklyMiles
		}
	}

	entries := make([]*IndividualEntry, 0, len(users))
	for _, user := range users {
		entry := &IndividualEntry{
			UserID:      user.ID,
			UserName:    user.UserName,
			TotalMiles:  user.TotalMiles,
			TotalRides:  user.TotalRides,
			WeeklyMiles: weekly[user.ID],
		}
		if user.TeamName.Valid {
			entry.TeamName = user.TeamName.String
		}
		entries = append(entries, entry)
	}

	if sortKey == SortWeeklyMiles {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].WeeklyMiles > entries[j].WeeklyMiles
		})
	}

	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

// MedalForRank returns the positional medal marker for the top three
// placements and an empty string otherwise. No tie-breaking is applied.
func MedalForRank(rank int) string {
	switch rank {
	case 1:
		return "gold"
	case 2:
		return "silver"
	case 3:
		return "bronze"
	default:
		return ""
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
