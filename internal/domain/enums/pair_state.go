package enums

type PairState string

const (
	PairStateNoInterest PairState = "no_interest"
	PairStateOneSided   PairState = "one_sided"
	PairStateMatched    PairState = "matched"
)
