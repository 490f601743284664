package rules

import "github.com/kenya-ifp/fusion-api/internal/models"

var clearanceRank = map[models.Classification]int{
	models.Unclassified: 1,
	models.Restricted:   2,
	models.Confidential: 3,
	models.Secret:       4,
}

// ClearanceRank maps a level onto the ordinal scale. Unknown or empty levels rank 0.
func ClearanceRank(level models.Classification) int {
	return clearanceRank[level]
}

// HasAccess reports whether a subject holding clearance may read an object
// with the given classification.
func HasAccess(clearance, classification models.Classification) bool {
	return ClearanceRank(clearance) >= ClearanceRank(classification)
}
