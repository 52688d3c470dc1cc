package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const CustomCategory = "custom"

func warmupCount(targetSec int, r *rand.Rand) int {
	switch {
	case targetSec < 240:
		return 5 + r.Intn(2)
	case targetSec < 600:
		return 4 + r.Intn(2)
	case targetSec < 900:
		return 3 + r.Intn(2)
	default:
		return 2 + r.Intn(2)
	}
}

func maxWarmupDuration(targetSec int) int {
	max := int(float64(targetSec) * 0.15)

	if max > 40 {
		return 40
	}
	if max < 5 {
		return 5
	}
	return max
}

// GenerateExercises builds a ladder of short warm-up holds followed by one
// main hold lasting targetSec.
func GenerateExercises(targetSec int, r *rand.Rand) []Exercise {
	warmups := warmupCount(targetSec, r)
	maxWarmup := maxWarmupDuration(targetSec)

	exercises := make([]Exercise, warmups+1)

	for i := 0; i < warmups; i++ {
		exercises[i] = Exercise{
			ID:              fmt.Sprintf("warmup-%d", i+1),
			Name:            fmt.Sprintf("Warm-up %d", i+1),
			DurationSeconds: r.Intn(maxWarmup) + 1,
			Instructions:    "Hold steady and breathe slowly.",
		}
	}

	exercises[warmups] = Exercise{
		ID:              "main",
		Name:            "Main hold",
		DurationSeconds: targetSec,
		Instructions:    "Hold for the full duration.",
	}

	return exercises
}

// NewCustomSession generates a one-off timed session for targetSec.
func NewCustomSession(targetSec int) (Session, error) {
	if targetSec <= 0 {
		return Session{}, fmt.Errorf("target seconds must be positive, got %d", targetSec)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	return Session{
		ID:         "custom-" + uuid.NewString(),
		Name:       fmt.Sprintf("Custom %ds session", targetSec),
		Category:   CustomCategory,
		Difficulty: "custom",
		Exercises:  GenerateExercises(targetSec, r),
	}, nil
}
