// Package wordlist names devices that registered without one.
package wordlist

import "math/rand"

var adjectives = []string{
	"amber", "bold", "brisk", "calm", "clever", "crimson", "daring", "dusty",
	"eager", "fuzzy", "gentle", "golden", "happy", "hasty", "humble", "icy",
	"jolly", "keen", "lively", "lucky", "mellow", "misty", "nimble", "noble",
	"patient", "proud", "quiet", "rapid", "rustic", "shy", "silent", "sly",
	"snowy", "solar", "stormy", "swift", "tidy", "vivid", "wild", "witty",
}

var animals = []string{
	"badger", "bat", "bear", "beaver", "bison", "crane", "crow", "deer",
	"dolphin", "falcon", "ferret", "fox", "gecko", "hare", "hawk", "heron",
	"ibex", "jackal", "koala", "lemur", "lynx", "marmot", "mole", "moose",
	"newt", "otter", "owl", "panda", "puffin", "raven", "robin", "seal",
	"shrew", "sparrow", "stoat", "swan", "tapir", "toad", "walrus", "wren",
}

// DeviceName draws "{adjective} {animal}" uniformly.
func DeviceName() string {
	return adjectives[rand.Intn(len(adjectives))] + " " + animals[rand.Intn(len(animals))]
}
