package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/mcdev12/bidroom/go/internal/models"
)

type seedEntry struct {
	name    string
	role    models.Role
	price   int64
	rating  int
	country string
}

var (
	batsman      = models.RoleBatsman
	bowler       = models.RoleBowler
	allRounder   = models.RoleAllRounder
	wicketKeeper = models.RoleWicketKeeper
)

var indianPlayers = []seedEntry{
	{"Virat Kohli", batsman, 1500, 5, "India"},
	{"Rohit Sharma", batsman, 1400, 5, "India"},
	{"KL Rahul", wicketKeeper, 1100, 4, "India"},
	{"Hardik Pandya", allRounder, 1500, 5, "India"},
	{"Jasprit Bumrah", bowler, 1200, 5, "India"},
	{"Mohammed Shami", bowler, 900, 4, "India"},
	{"Ravindra Jadeja", allRounder, 1600, 5, "India"},
	{"Rishabh Pant", wicketKeeper, 1600, 5, "India"},
	{"Shubman Gill", batsman, 800, 4, "India"},
	{"Yuzvendra Chahal", bowler, 600, 4, "India"},
	{"Bhuvneshwar Kumar", bowler, 400, 3, "India"},
	{"Ishan Kishan", wicketKeeper, 1520, 4, "India"},
	{"Shreyas Iyer", batsman, 1225, 4, "India"},
	{"Suryakumar Yadav", batsman, 800, 4, "India"},
	{"Washington Sundar", allRounder, 325, 3, "India"},
	{"Axar Patel", allRounder, 900, 4, "India"},
	{"Mohammed Siraj", bowler, 600, 4, "India"},
	{"Kuldeep Yadav", bowler, 200, 3, "India"},
	{"Deepak Chahar", bowler, 1400, 3, "India"},
	{"Sanju Samson", wicketKeeper, 1400, 4, "India"},
	{"Prithvi Shaw", batsman, 750, 3, "India"},
	{"Mayank Agarwal", batsman, 1200, 3, "India"},
	{"Shikhar Dhawan", batsman, 850, 4, "India"},
	{"Dinesh Karthik", wicketKeeper, 550, 3, "India"},
	{"Krunal Pandya", allRounder, 850, 3, "India"},
	{"Rahul Chahar", bowler, 525, 3, "India"},
}

var internationalPlayers = []seedEntry{
	{"Jos Buttler", wicketKeeper, 1000, 5, "England"},
	{"Ben Stokes", allRounder, 1650, 5, "England"},
	{"Jason Roy", batsman, 200, 4, "England"},
	{"Liam Livingstone", allRounder, 1150, 4, "England"},
	{"Jonny Bairstow", wicketKeeper, 675, 4, "England"},
	{"Sam Curran", allRounder, 1850, 4, "England"},
	{"David Warner", batsman, 650, 5, "Australia"},
	{"Steve Smith", batsman, 220, 5, "Australia"},
	{"Glenn Maxwell", allRounder, 1100, 4, "Australia"},
	{"Pat Cummins", bowler, 750, 5, "Australia"},
	{"Mitchell Starc", bowler, 2475, 5, "Australia"},
	{"Josh Hazlewood", bowler, 175, 4, "Australia"},
	{"Marcus Stoinis", allRounder, 900, 3, "Australia"},
	{"Aaron Finch", batsman, 150, 4, "Australia"},
	{"Kane Williamson", batsman, 200, 5, "New Zealand"},
	{"Trent Boult", bowler, 800, 4, "New Zealand"},
	{"Mitchell Santner", allRounder, 200, 3, "New Zealand"},
	{"Tim Southee", bowler, 150, 4, "New Zealand"},
	{"Quinton de Kock", wicketKeeper, 675, 4, "South Africa"},
	{"Kagiso Rabada", bowler, 950, 5, "South Africa"},
	{"Anrich Nortje", bowler, 650, 4, "South Africa"},
	{"Aiden Markram", batsman, 200, 4, "South Africa"},
	{"Babar Azam", batsman, 200, 5, "Pakistan"},
	{"Shaheen Afridi", bowler, 800, 5, "Pakistan"},
	{"Mohammad Rizwan", wicketKeeper, 200, 4, "Pakistan"},
	{"Rashid Khan", bowler, 1500, 5, "Afghanistan"},
}

var generatedCountries = []string{
	"India", "England", "Australia", "South Africa", "New Zealand",
	"Pakistan", "West Indies", "Sri Lanka", "Bangladesh", "Afghanistan",
}

const (
	GeneratedPlayers = 150
	defaultsSeed     = 2008
)

// Defaults returns the built-in catalog: the named Indian and international
// players followed by generated squad fillers. The fillers come from a fixed
// seed so every process builds the same catalog.
func Defaults() []models.Player {
	rng := rand.New(rand.NewPCG(defaultsSeed, defaultsSeed))

	entries := make([]seedEntry, 0, len(indianPlayers)+len(internationalPlayers)+GeneratedPlayers)
	entries = append(entries, indianPlayers...)
	entries = append(entries, internationalPlayers...)
	for i := range GeneratedPlayers {
		entries = append(entries, seedEntry{
			name:    fmt.Sprintf("Player %d", i+1),
			role:    models.Roles[rng.IntN(len(models.Roles))],
			price:   20 + rng.Int64N(781),
			rating:  2 + rng.IntN(3),
			country: generatedCountries[rng.IntN(len(generatedCountries))],
		})
	}

	players := make([]models.Player, 0, len(entries))
	for _, e := range entries {
		players = append(players, models.Player{
			ID:        models.PlayerID(e.name),
			Name:      e.name,
			Role:      e.role,
			BasePrice: e.price,
			Country:   e.country,
			Rating:    e.rating,
		})
	}
	return players
}
