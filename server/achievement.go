package main

// Achievement definitions
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"first_meal", "First Meal", "Eat your first pellet"},
	{"glutton", "Glutton", "Eat 1000 pellets total"},
	{"predator", "Predator", "Swallow your first orb"},
	{"apex", "Apex", "Swallow 50 orbs total"},
	{"century", "Century", "Score 100 in a single run"},
	{"heavyweight", "Heavyweight", "Score 500 in a single run"},
	{"regular", "Regular", "Finish 25 runs"},
	{"lifer", "Lifer", "Spend an hour in the arena"},
}

// CheckAchievements checks if any new achievements should be unlocked for a
// player whose run just ended. Lifetime totals are read back from the stats
// table, so the run must be recorded first. Returns the newly unlocked
// definitions.
func CheckAchievements(db *DB, playerID int64, runScore int) []AchievementDef {
	if db == nil {
		return nil
	}

	stats, err := db.GetStats(playerID)
	if err != nil {
		return nil
	}

	existing, err := db.GetAchievements(playerID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, a := range existing {
		has[a] = true
	}

	var unlocked []AchievementDef

	check := func(id string) bool {
		if has[id] {
			return false
		}
		switch id {
		case "first_meal":
			return stats.Pellets >= 1
		case "glutton":
			return stats.Pellets >= 1000
		case "predator":
			return stats.Orbs >= 1
		case "apex":
			return stats.Orbs >= 50
		case "century":
			return runScore >= 100
		case "heavyweight":
			return runScore >= 500
		case "regular":
			return stats.Runs >= 25
		case "lifer":
			return stats.Playtime >= 3600
		}
		return false
	}

	for _, def := range Achievements {
		if check(def.ID) {
			if newlyUnlocked, err := db.UnlockAchievement(playerID, def.ID); err == nil && newlyUnlocked {
				unlocked = append(unlocked, def)
			}
		}
	}

	return unlocked
}
