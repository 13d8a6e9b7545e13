package session

import (
	"math/rand"

	"github.com/mentislab/mentis/internal/models"
)

// shuffledFIQ returns a uniform random permutation of the active stimuli
// (Fisher-Yates over a copy). The input slice is left untouched; inactive
// stimuli are dropped before shuffling.
func shuffledFIQ(r *rand.Rand, in []models.FIQStimulus) []models.FIQStimulus {
	out := make([]models.FIQStimulus, 0, len(in))
	for _, st := range in {
		if st.Active {
			out = append(out, st)
		}
	}
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
