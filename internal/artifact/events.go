package artifact

import "time"

// UpdatedEvent announces that a new artifact was saved at Location. It is the
// payload of the model-updates topic.
type UpdatedEvent struct {
	Location       string    `json:"location"`
	ModelID        string    `json:"model_id"`
	CreatedAt      time.Time `json:"created_at"`
	Classes        []string  `json:"classes"`
	VocabularySize int       `json:"vocabulary_size"`
	TestAccuracy   float64   `json:"test_accuracy"`
}

// UpdatedEventFor builds the event describing a saved artifact.
func UpdatedEventFor(location string, a *Artifact) UpdatedEvent {
	return UpdatedEvent{
		Location:       location,
		ModelID:        a.ModelID,
		CreatedAt:      a.CreatedAt,
		Classes:        a.Classes(),
		VocabularySize: a.VocabularySize(),
		TestAccuracy:   a.Training.TestAccuracy,
	}
}
