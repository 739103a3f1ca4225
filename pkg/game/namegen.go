package game

import "math/rand"

var (
	nameFirst  = []string{"Engle", "Beef", "Spork", "Glommuck", "Bligg", "Memni", "Qrech", "Zleeph", "Zimple"}
	nameSecond = []string{"bork", "stoph", "strom", "rak", "bibble", "ziggy", "worth", "boid", "gloph"}
	nameThird  = []string{"Apostra", "Goven", "Rattler", "Yorky", "Pasta", "Hein", "Yerrel", "Peef"}
	nameFourth = []string{"glubber", "slipper", "ribbster", "zonky", "drizzle", "blimey"}
)

// GenerateName produces a random character name for players who ask the
// dungeon to name them.
func GenerateName() string {
	return nameFirst[rand.Intn(len(nameFirst))] +
		nameSecond[rand.Intn(len(nameSecond))] + " " +
		nameThird[rand.Intn(len(nameThird))] +
		nameFourth[rand.Intn(len(nameFourth))]
}
