package scoring

import "atscheck/internal/types"

// The rubric: every weight and threshold the scoring engine uses.
// Check weights sum to 1.0.
const (
	WeightLayout     = 0.25
	WeightContact    = 0.15
	WeightSections   = 0.15
	WeightSkills     = 0.12
	WeightLength     = 0.08
	WeightBullets    = 0.07
	WeightImpact     = 0.08
	WeightRepetition = 0.05
	WeightFormatting = 0.05

	// Status tiers: score >= GoodScore is good, >= WarnScore is warn, else bad.
	GoodScore = 80
	WarnScore = 50

	// ats_friendly requires this overall score and no bad check.
	PassScore = 70

	// Layout risk penalties.
	ScannedPenalty = 75
	ColumnsPenalty = 30

	// Contact completeness scores.
	ContactFull      = 100
	ContactEmailOnly = 65
	ContactNoEmail   = 35
	ContactNone      = 0

	// Section coverage: a header with no content counts half.
	EmptySectionCredit = 0.5

	// Skills density.
	TargetSkills  = 8
	MaxSkills     = 40
	SkillsFloor   = 30
	SkillsStuffed = 75

	// Length and density. Never below WarnScore.
	MinWordsSparse = 80
	MinWords       = 200
	MaxWords       = 1200
	MaxPages       = 2
	LengthSparse   = 55
	LengthShort    = 65
	LengthLong     = 60

	// Bullet usage.
	MinBullets  = 3
	BulletsNone = 55
	BulletsFew  = 75

	// Quantified impact. Never below WarnScore.
	ImpactMetrics = 3
	ImpactNone    = 55
	ImpactFew     = 70

	// Repetition of the most frequent content word. Never below WarnScore.
	RepetitionMax  = 18
	RepetitionHigh = 65
	RepetitionOK   = 95

	// Formatting noise. Never below WarnScore.
	MaxCapsWords    = 25
	MaxSymbolRunes  = 20
	FormattingNoisy = 65
	FormattingClean = 90
)

// gradeSteps maps a minimum overall score to its grade, best first.
var gradeSteps = []struct {
	min   int
	grade string
}{
	{90, "A"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
	{0, "F"},
}

// checks is the ordered check list. Declaration order is display order.
var checks = []struct {
	key    string
	label  string
	weight float64
	run    func(Input) types.CheckResult
}{
	{KeyLayout, "Layout risk", WeightLayout, checkLayout},
	{KeyContact, "Contact info", WeightContact, checkContact},
	{KeySections, "Section coverage", WeightSections, checkSections},
	{KeySkills, "Keywords & skills", WeightSkills, checkSkills},
	{KeyLength, "Length", WeightLength, checkLength},
	{KeyBullets, "Bullet points", WeightBullets, checkBullets},
	{KeyImpact, "Quantified impact", WeightImpact, checkImpact},
	{KeyRepetition, "Repetition", WeightRepetition, checkRepetition},
	{KeyFormatting, "Formatting noise", WeightFormatting, checkFormatting},
}

// Grade maps an overall score to its letter grade.
func Grade(score int) string {
	for _, s := range gradeSteps {
		if score >= s.min {
			return s.grade
		}
	}
	return gradeSteps[len(gradeSteps)-1].grade
}

// StatusFor maps a check score to its status tier.
func StatusFor(score int) types.CheckStatus {
	switch {
	case score >= GoodScore:
		return types.StatusGood
	case score >= WarnScore:
		return types.StatusWarn
	default:
		return types.StatusBad
	}
}
