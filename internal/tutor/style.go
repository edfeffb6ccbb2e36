package tutor

import "fmt"

// 학습 스타일
const (
	Visual      = "Visual"
	Auditory    = "Auditory"
	Kinesthetic = "Kinesthetic"
)

const DefaultStyle = Visual

type Style struct {
	Name string
	Tips string
}

var styles = map[string]Style{
	Visual: {
		Name: Visual,
		Tips: "diagrams & vivid examples",
	},
	Auditory: {
		Name: Auditory,
		Tips: "story-style explanations",
	},
	Kinesthetic: {
		Name: Kinesthetic,
		Tips: "hands-on tasks",
	},
}

func GetStyle(name string) (Style, bool) {
	style, exists := styles[name]
	return style, exists
}

var levels = []string{"Beginner", "Intermediate", "Advanced"}

func Levels() []string {
	return append([]string(nil), levels...)
}

func ValidLevel(level string) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

const (
	MinScore = 1
	MaxScore = 5
)

// Analyze returns the dominant learning style for the three slider scores.
// Ties go to the style listed first: Visual, then Auditory, then Kinesthetic.
func Analyze(visual, auditory, kinesthetic int) (string, error) {
	scores := []struct {
		name  string
		score int
	}{
		{Visual, visual},
		{Auditory, auditory},
		{Kinesthetic, kinesthetic},
	}

	best := scores[0]
	for _, s := range scores {
		if s.score < MinScore || s.score > MaxScore {
			return "", fmt.Errorf("%s score %d out of range %d..%d", s.name, s.score, MinScore, MaxScore)
		}
		if s.score > best.score {
			best = s
		}
	}
	return best.name, nil
}
