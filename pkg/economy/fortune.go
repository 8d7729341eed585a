package economy

// Fortune is an omikuji rank.
type Fortune string

const (
	GreatBlessing    Fortune = "Great Blessing"
	ModerateBlessing Fortune = "Moderate Blessing"
	SmallBlessing    Fortune = "Small Blessing"
	Blessing         Fortune = "Blessing"
	MinorBlessing    Fortune = "Minor Blessing"
	Misfortune       Fortune = "Misfortune"
	GreatMisfortune  Fortune = "Great Misfortune"
)

// Fortunes is the draw table. Every entry is equally likely.
var Fortunes = []Fortune{
	GreatBlessing,
	ModerateBlessing,
	SmallBlessing,
	Blessing,
	MinorBlessing,
	Misfortune,
	GreatMisfortune,
}

// IsGood reports whether the fortune counts as a good draw.
func (f Fortune) IsGood() bool {
	return f == GreatBlessing || f == ModerateBlessing || f == Blessing
}

// IsBad reports whether the fortune counts as a bad draw.
func (f Fortune) IsBad() bool {
	return f == Misfortune || f == GreatMisfortune
}
