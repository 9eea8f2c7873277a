package matching

import (
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Field names used in the composite breakdown
const (
	FieldTitle   = "title"
	FieldAddress = "address"
	FieldPrice   = "price"
	FieldRevenue = "revenue"
	FieldEBITDA  = "ebitda"
	FieldBroker  = "broker"
)

// defaultWeights are renormalized over whichever fields are present on
// both listings, so a pair missing EBITDA is scored on the rest.
var defaultWeights = map[string]float64{
	FieldTitle:   0.35,
	FieldAddress: 0.20,
	FieldPrice:   0.15,
	FieldRevenue: 0.075,
	FieldEBITDA:  0.075,
	FieldBroker:  0.15,
}

// Similarity computes composite duplicate scores between listing
// feature vectors
type Similarity struct {
	scorer  *Scorer
	weights map[string]float64
}

// NewSimilarity creates a Similarity with the default field weights
func NewSimilarity() *Similarity {
	return &Similarity{
		scorer:  NewScorer(),
		weights: defaultWeights,
	}
}

// Result carries a composite score and its per-field breakdown
type Result struct {
	Score       float64
	FieldScores models.FieldScores
}

// Compare scores two feature vectors. The composite is a weighted
// average over the fields present on both sides; the breakdown records
// which fields contributed. Compare is symmetric in its arguments.
func (s *Similarity) Compare(a, b *fingerprint.Features) Result {
	scores := make(map[string]float64, len(s.weights))
	var breakdown models.FieldScores

	// Title is always present
	title := s.titleScore(a, b)
	scores[FieldTitle] = title
	breakdown.Title = &title

	if a.AddressNorm != nil && b.AddressNorm != nil {
		addr := s.scorer.ExactMatch(*a.AddressNorm, *b.AddressNorm, false)
		scores[FieldAddress] = addr
		breakdown.Address = &addr
	}

	if a.AskingPrice != nil && b.AskingPrice != nil {
		price := s.scorer.NumericRatio(*a.AskingPrice, *b.AskingPrice)
		scores[FieldPrice] = price
		breakdown.Price = &price
	}

	if a.AnnualRevenue != nil && b.AnnualRevenue != nil {
		revenue := s.scorer.NumericRatio(*a.AnnualRevenue, *b.AnnualRevenue)
		scores[FieldRevenue] = revenue
		breakdown.Revenue = &revenue
	}

	if a.EBITDA != nil && b.EBITDA != nil {
		ebitda := s.scorer.NumericRatio(*a.EBITDA, *b.EBITDA)
		scores[FieldEBITDA] = ebitda
		breakdown.EBITDA = &ebitda
	}

	if broker, ok := s.brokerScore(a, b); ok {
		scores[FieldBroker] = broker
		breakdown.Broker = &broker
	}

	return Result{
		Score:       s.scorer.WeightedScore(scores, s.weights),
		FieldScores: breakdown,
	}
}

// ExactResult is the breakdown recorded for content-hash duplicates
func (s *Similarity) ExactResult() Result {
	one := 1.0
	return Result{
		Score: 1.0,
		FieldScores: models.FieldScores{
			Title:   &one,
			Address: &one,
			Price:   &one,
			Revenue: &one,
			EBITDA:  &one,
			Broker:  &one,
		},
	}
}

// titleScore blends token-set overlap with edit distance so both
// re-ordered words and small typos score high
func (s *Similarity) titleScore(a, b *fingerprint.Features) float64 {
	jaccard := s.scorer.Jaccard(a.TitleTokens, b.TitleTokens)
	lev := s.scorer.Levenshtein(a.TitleNorm, b.TitleNorm)
	return 0.5*jaccard + 0.5*lev
}

// brokerScore compares broker contact info. Returns ok=false when
// neither side shares a comparable contact field.
func (s *Similarity) brokerScore(a, b *fingerprint.Features) (float64, bool) {
	phoneComparable := a.BrokerPhone != nil && b.BrokerPhone != nil
	emailComparable := a.BrokerEmail != nil && b.BrokerEmail != nil
	if !phoneComparable && !emailComparable {
		return 0, false
	}

	if phoneComparable && *a.BrokerPhone == *b.BrokerPhone {
		return 1.0, true
	}
	if emailComparable && *a.BrokerEmail == *b.BrokerEmail {
		return 1.0, true
	}
	return 0.0, true
}
