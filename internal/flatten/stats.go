package flatten

import "github.com/dgallion1/flatjson/internal/collection"

// Summary counts what a flatten run produced.
type Summary struct {
	Collections int `json:"collections"`
	Records     int `json:"records"`
	Collisions  int `json:"collisions"`
}

// Stats summarizes set for logging.
func Stats(set *collection.Set) Summary {
	return Summary{
		Collections: set.Len(),
		Records:     set.RecordCount(),
		Collisions:  len(set.Collisions()),
	}
}
